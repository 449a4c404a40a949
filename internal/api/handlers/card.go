package handlers

import (
	"errors"
	"net/http"
	"sync"

	"github.com/ramonehamilton/MTG-Collection/internal/api/response"
	"github.com/ramonehamilton/MTG-Collection/internal/auth"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/cardref"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/names"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/search"
	"github.com/ramonehamilton/MTG-Collection/internal/collection/importer"
)

// CardHandler handles card lookup and typeahead requests.
type CardHandler struct {
	resolver importer.Resolver
	source   search.Autocompleter

	mu         sync.Mutex
	suggesters map[string]*search.Suggester
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(resolver importer.Resolver, source search.Autocompleter) *CardHandler {
	return &CardHandler{
		resolver:   resolver,
		source:     source,
		suggesters: make(map[string]*search.Suggester),
	}
}

// ResolveCard looks up reference attributes for "name", optionally
// narrowed by "set" or "externalId".
func (h *CardHandler) ResolveCard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	identity := names.Normalize(q.Get("name"))
	if identity == "" && q.Get("externalId") == "" {
		response.BadRequest(w, errors.New("name is required"))
		return
	}

	rec, err := h.resolver.Resolve(r.Context(), cardref.Query{
		Name:       identity,
		Set:        q.Get("set"),
		ExternalID: q.Get("externalId"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Success(w, rec)
}

// Suggest returns card names matching "q". Each user has one query in
// flight; a newer query makes the older one answer 409.
func (h *CardHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	suggestions, err := h.suggester(userID).Suggest(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		if errors.Is(err, search.ErrSuperseded) {
			response.Error(w, http.StatusConflict, err)
			return
		}
		writeError(w, r, err)
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	response.Success(w, suggestions)
}

func (h *CardHandler) suggester(userID string) *search.Suggester {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.suggesters[userID]
	if !ok {
		s = search.NewSuggester(h.source)
		h.suggesters[userID] = s
	}
	return s
}
