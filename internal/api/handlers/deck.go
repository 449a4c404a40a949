package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/MTG-Collection/internal/api/response"
	"github.com/ramonehamilton/MTG-Collection/internal/collection/aggregate"
	"github.com/ramonehamilton/MTG-Collection/internal/collection/importer"
	"github.com/ramonehamilton/MTG-Collection/internal/deck"
	"github.com/ramonehamilton/MTG-Collection/internal/storage/models"
)

// DeckHandler handles deck-related API requests.
type DeckHandler struct {
	svc *deck.Service
}

// NewDeckHandler creates a new DeckHandler.
func NewDeckHandler(svc *deck.Service) *DeckHandler {
	return &DeckHandler{svc: svc}
}

// DeckResponse is a deck plus its rendered description and readiness.
type DeckResponse struct {
	*models.Deck
	DescriptionHTML string `json:"descriptionHtml,omitempty"`
	Ready           bool   `json:"ready"`
}

// ImportDeckResponse is an unsaved deck built from a text list.
type ImportDeckResponse struct {
	Deck            *models.Deck `json:"deck"`
	Unresolved      int          `json:"unresolved"`
	UnresolvedNames []string     `json:"unresolvedNames,omitempty"`
}

func newDeckResponse(d *models.Deck) (*DeckResponse, error) {
	html, err := deck.RenderDescription(d.Description)
	if err != nil {
		return nil, err
	}
	return &DeckResponse{Deck: d, DescriptionHTML: html, Ready: aggregate.IsDeckReady(d)}, nil
}

// GetDecks returns every saved deck. "format" filters by format.
func (h *DeckHandler) GetDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	if format := r.URL.Query().Get("format"); format != "" {
		filtered := make([]*models.Deck, 0, len(decks))
		for _, d := range decks {
			if strings.EqualFold(string(d.Format), format) {
				filtered = append(filtered, d)
			}
		}
		decks = filtered
	}

	response.Success(w, decks)
}

// CreateDeck saves a new deck. Any id in the body is ignored.
func (h *DeckHandler) CreateDeck(w http.ResponseWriter, r *http.Request) {
	var req models.Deck
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, errors.New("invalid request body"))
		return
	}
	req.ID = ""

	h.save(w, r, &req, http.StatusCreated)
}

// GetDeck returns a deck with owned quantities from the current collection.
func (h *DeckHandler) GetDeck(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Get(r.Context(), chi.URLParam(r, "deckID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := newDeckResponse(d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Success(w, resp)
}

// UpdateDeck overwrites a saved deck.
func (h *DeckHandler) UpdateDeck(w http.ResponseWriter, r *http.Request) {
	var req models.Deck
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, errors.New("invalid request body"))
		return
	}
	req.ID = chi.URLParam(r, "deckID")

	h.save(w, r, &req, http.StatusOK)
}

func (h *DeckHandler) save(w http.ResponseWriter, r *http.Request, d *models.Deck, status int) {
	saved, err := h.svc.Save(r.Context(), d)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := newDeckResponse(saved)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, status, response.SuccessResponse{Data: resp})
}

// DeleteDeck deletes a deck.
func (h *DeckHandler) DeleteDeck(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "deckID")); err != nil {
		writeError(w, r, err)
		return
	}
	response.NoContent(w)
}

// GetTypeSummary returns needed and owned counts per card type.
func (h *DeckHandler) GetTypeSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.TypeSummary(r.Context(), chi.URLParam(r, "deckID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Success(w, rows)
}

// GetOpeningHand draws a sample opening hand.
func (h *DeckHandler) GetOpeningHand(w http.ResponseWriter, r *http.Request) {
	hand, err := h.svc.OpeningHand(r.Context(), chi.URLParam(r, "deckID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Success(w, hand)
}

// ExportDeck downloads the deck as a plain-text list.
func (h *DeckHandler) ExportDeck(w http.ResponseWriter, r *http.Request) {
	filename, text, err := h.svc.Export(r.Context(), chi.URLParam(r, "deckID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

// ImportDeck builds an unsaved deck from a plain-text list in the request
// body. "name" and "format" query parameters override the list header.
func (h *DeckHandler) ImportDeck(w http.ResponseWriter, r *http.Request) {
	opts := deck.ImportOptions{Name: r.URL.Query().Get("name")}
	if raw := r.URL.Query().Get("format"); raw != "" {
		format, err := models.ParseFormat(raw)
		if err != nil {
			response.BadRequest(w, err)
			return
		}
		opts.Format = format
	}

	body, _, err := uploadedFile(w, r)
	if err != nil {
		response.BadRequest(w, err)
		return
	}
	defer func() { _ = body.Close() }()

	d, result, err := h.svc.ImportDecklist(r.Context(), body, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Success(w, newImportDeckResponse(d, result))
}

func newImportDeckResponse(d *models.Deck, result *importer.Result) ImportDeckResponse {
	return ImportDeckResponse{
		Deck:            d,
		Unresolved:      result.Unresolved,
		UnresolvedNames: result.UnresolvedNames,
	}
}
