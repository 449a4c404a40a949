package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ramonehamilton/MTG-Collection/internal/api/handlers"
	"github.com/ramonehamilton/MTG-Collection/internal/api/response"
	"github.com/ramonehamilton/MTG-Collection/internal/version"
)

// requestTimeout bounds JSON endpoints. Imports run as long as the client
// waits.
const requestTimeout = 60 * time.Second

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint (no versioning)
	s.router.Get("/health", s.healthCheck)

	// WebSocket endpoint (no JSON content-type requirement)
	s.router.Get("/ws", s.wsHub.ServeWs)

	collectionHandler := handlers.NewCollectionHandler(s.services.Collection)
	deckHandler := handlers.NewDeckHandler(s.services.Decks)
	cardHandler := handlers.NewCardHandler(s.services.Resolver, s.services.Suggest)
	setHandler := handlers.NewSetHandler(s.services.Sets, s.services.Events)

	s.router.Route("/api/v1", func(r chi.Router) {
		// File uploads: CSV, plain text or multipart
		r.Post("/collection/import", collectionHandler.Import)
		r.Post("/decks/import", deckHandler.ImportDeck)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Use(jsonContentTypeMiddleware)

			r.Route("/collection", func(r chi.Router) {
				r.Get("/", collectionHandler.GetCollection)
				r.Put("/", collectionHandler.ReplaceCollection)
				r.Get("/summary", collectionHandler.GetSummary)
				r.Put("/quantity", collectionHandler.SetQuantity)
				r.Get("/history", collectionHandler.GetHistory)
			})

			r.Route("/decks", func(r chi.Router) {
				r.Get("/", deckHandler.GetDecks)
				r.Post("/", deckHandler.CreateDeck)
				r.Get("/{deckID}", deckHandler.GetDeck)
				r.Put("/{deckID}", deckHandler.UpdateDeck)
				r.Delete("/{deckID}", deckHandler.DeleteDeck)
				r.Get("/{deckID}/summary", deckHandler.GetTypeSummary)
				r.Get("/{deckID}/hand", deckHandler.GetOpeningHand)
				r.Get("/{deckID}/export", deckHandler.ExportDeck)
			})

			r.Route("/cards", func(r chi.Router) {
				r.Get("/resolve", cardHandler.ResolveCard)
				r.Get("/suggest", cardHandler.Suggest)
			})

			r.Route("/sets", func(r chi.Router) {
				r.Get("/resolve", setHandler.ResolveSet)
				r.Post("/refresh", setHandler.RefreshSets)
			})
		})
	})
}

// healthCheck returns server health status.
func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "mtg-collection-api",
		"version": version.Version,
	})
}
