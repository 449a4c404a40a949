// Package handlers implements the REST API endpoints.
package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/ramonehamilton/MTG-Collection/internal/api/response"
	"github.com/ramonehamilton/MTG-Collection/internal/auth"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/cardref"
	"github.com/ramonehamilton/MTG-Collection/internal/collection"
	"github.com/ramonehamilton/MTG-Collection/internal/deck"
	"github.com/ramonehamilton/MTG-Collection/internal/storage"
)

// writeError maps service errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		response.Unauthorized(w, err)
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, cardref.ErrNotFound):
		response.NotFound(w, err)
	case errors.Is(err, collection.ErrInvalidImport):
		response.BadRequest(w, err)
	case errors.Is(err, deck.ErrInvalidDeck), errors.Is(err, collection.ErrInvalidQuantity):
		response.UnprocessableEntity(w, err)
	default:
		log.Printf("[API] %s %s failed: %v", r.Method, r.URL.Path, err)
		response.InternalError(w, err)
	}
}
