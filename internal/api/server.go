// Package api serves the collection and deck REST API.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ramonehamilton/MTG-Collection/internal/api/websocket"
	"github.com/ramonehamilton/MTG-Collection/internal/auth"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/search"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/sets"
	"github.com/ramonehamilton/MTG-Collection/internal/collection"
	"github.com/ramonehamilton/MTG-Collection/internal/collection/importer"
	"github.com/ramonehamilton/MTG-Collection/internal/deck"
	"github.com/ramonehamilton/MTG-Collection/internal/events"
)

// Server represents the REST API server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	port       int
	origins    []string
	auth       auth.MiddlewareOptions

	// WebSocket hub for real-time events
	wsHub *websocket.Hub

	services *Services
}

// Config holds configuration for the API server.
type Config struct {
	Port           int
	AllowedOrigins []string
	Auth           auth.MiddlewareOptions
}

// DefaultConfig returns the default API server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*", "https://localhost:*"},
	}
}

// Services holds everything the handlers call into.
type Services struct {
	Collection *collection.Service
	Decks      *deck.Service
	Resolver   importer.Resolver
	Suggest    search.Autocompleter
	Sets       *sets.Reconciler
	Events     events.Publisher
}

// NewServer creates a new API server.
func NewServer(cfg *Config, services *Services) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if services == nil {
		services = &Services{}
	}

	s := &Server{
		router:   chi.NewRouter(),
		port:     cfg.Port,
		origins:  cfg.AllowedOrigins,
		auth:     cfg.Auth,
		wsHub:    websocket.NewHub(wsOrigins(cfg.AllowedOrigins)),
		services: services,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// wsOrigins keeps the exact origins; wildcard patterns are left to CORS
// and accept any websocket origin.
func wsOrigins(origins []string) []string {
	exact := make([]string, 0, len(origins))
	for _, o := range origins {
		if strings.Contains(o, "*") {
			return nil
		}
		exact = append(exact, o)
	}
	return exact
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.Use(auth.Middleware(s.auth))
}

// jsonContentTypeMiddleware enforces application/json content-type for requests with bodies.
func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType != "application/json" && !strings.HasPrefix(contentType, "application/json;") {
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the WebSocket hub and the HTTP listener in goroutines.
func (s *Server) Start() error {
	go s.wsHub.Run()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("[API] Server starting on port %d", s.port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[API] Server error: %v", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the API server and the WebSocket hub.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsHub.Stop()
	if s.httpServer == nil {
		return nil
	}

	log.Println("[API] Shutting down server...")
	return s.httpServer.Shutdown(ctx)
}

// Port returns the port the server is configured to listen on.
func (s *Server) Port() int {
	return s.port
}

// WebSocketHub returns the WebSocket hub.
func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}

// NewWebSocketObserver creates an observer that forwards dispatched events
// to this server's WebSocket clients.
func (s *Server) NewWebSocketObserver() *websocket.Observer {
	return websocket.NewObserver(s.wsHub)
}
