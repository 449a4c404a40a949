package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ramonehamilton/MTG-Collection/internal/api/response"
	"github.com/ramonehamilton/MTG-Collection/internal/auth"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/sets"
	"github.com/ramonehamilton/MTG-Collection/internal/events"
	"github.com/ramonehamilton/MTG-Collection/internal/storage"
)

// SetHandler handles set lookups and catalog refreshes.
type SetHandler struct {
	reconciler *sets.Reconciler
	events     events.Publisher
}

// NewSetHandler creates a new SetHandler. publisher may be nil.
func NewSetHandler(reconciler *sets.Reconciler, publisher events.Publisher) *SetHandler {
	if publisher == nil {
		publisher = events.Discard
	}
	return &SetHandler{reconciler: reconciler, events: publisher}
}

// SetResponse is a resolved set.
type SetResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ResolveSet maps retailer "code" and "name" parameters to a set code.
func (h *SetHandler) ResolveSet(w http.ResponseWriter, r *http.Request) {
	code, name := r.URL.Query().Get("code"), r.URL.Query().Get("name")
	if code == "" && name == "" {
		response.BadRequest(w, errors.New("code or name is required"))
		return
	}

	maps, err := h.reconciler.Maps(r.Context())
	if err != nil {
		response.ServiceUnavailable(w, err)
		return
	}

	resolved, ok := maps.Resolve(code, name)
	if !ok {
		writeError(w, r, fmt.Errorf("set %q: %w", firstNonEmpty(name, code), storage.ErrNotFound))
		return
	}
	display, _ := maps.Name(resolved)
	response.Success(w, SetResponse{Code: resolved, Name: display})
}

// RefreshSets drops the cached set catalog and fetches it again.
func (h *SetHandler) RefreshSets(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserIDFromContext(r.Context()); !ok {
		response.Unauthorized(w, auth.ErrNotAuthenticated)
		return
	}

	if err := h.reconciler.Clear(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	maps, err := h.reconciler.Maps(r.Context())
	if err != nil {
		response.ServiceUnavailable(w, err)
		return
	}

	count := len(maps.CodeToName)
	h.events.Dispatch(events.NewEvent(events.TypeSetsRefreshed, "", events.SetsRefreshedEvent{Sets: count}))
	response.Success(w, events.SetsRefreshedEvent{Sets: count})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
