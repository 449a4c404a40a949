package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ramonehamilton/MTG-Collection/internal/auth"
	"github.com/ramonehamilton/MTG-Collection/internal/collection"
	"github.com/ramonehamilton/MTG-Collection/internal/collection/importer"
	"github.com/ramonehamilton/MTG-Collection/internal/storage"
)

func TestNewServer(t *testing.T) {
	cfg := DefaultConfig()

	server := NewServer(cfg, nil)

	if server == nil {
		t.Fatal("NewServer returned nil")
	}

	if server.Port() != cfg.Port {
		t.Errorf("Expected port %d, got %d", cfg.Port, server.Port())
	}

	if server.WebSocketHub() == nil {
		t.Error("Expected wsHub to be initialized")
	}
}

func TestNewServer_NilConfig(t *testing.T) {
	server := NewServer(nil, nil)

	if server == nil {
		t.Fatal("NewServer returned nil with nil config")
	}

	// Should use default port
	if server.Port() != 8080 {
		t.Errorf("Expected default port 8080, got %d", server.Port())
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Port)
	}

	if len(cfg.AllowedOrigins) == 0 {
		t.Error("Expected default allowed origins")
	}

	if cfg.Auth.JWTSecret != "" || cfg.Auth.DevUserID != "" {
		t.Error("Expected no authentication defaults")
	}
}

func TestWsOrigins(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		want    int
	}{
		{"exact origins kept", []string{"https://app.example.com", "http://localhost:3000"}, 2},
		{"wildcard allows any", []string{"https://app.example.com", "http://localhost:*"}, 0},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wsOrigins(tt.origins); len(got) != tt.want {
				t.Errorf("wsOrigins(%v) = %v, want %d entries", tt.origins, got, tt.want)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	server := NewServer(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var resp struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "healthy" || resp.Service != "mtg-collection-api" {
		t.Errorf("Unexpected health response %+v", resp)
	}
}

func TestJSONContentTypeMiddleware(t *testing.T) {
	handler := jsonContentTypeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		wantStatus  int
	}{
		{"GET passes", http.MethodGet, "", "", http.StatusOK},
		{"POST json", http.MethodPost, "application/json", "{}", http.StatusOK},
		{"POST json charset", http.MethodPost, "application/json; charset=utf-8", "{}", http.StatusOK},
		{"POST empty body", http.MethodPost, "", "", http.StatusOK},
		{"PUT text", http.MethodPut, "text/plain", "hello", http.StatusUnsupportedMediaType},
		{"PATCH form", http.MethodPatch, "application/x-www-form-urlencoded", "a=b", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func newCollectionServer(t *testing.T, cfg *Config) *Server {
	t.Helper()
	db := storage.NewTestDB(t)
	users := auth.ContextResolver{}
	svc := collection.NewService(storage.NewGateway(db, users), users, importer.NewPipeline(nil, nil, 1), nil)
	return NewServer(cfg, &Services{Collection: svc})
}

func TestServer_DevUser(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Auth.DevUserID = "dev"
	server := newCollectionServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/collection", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"data":[]}` {
		t.Errorf("Unexpected body %s", got)
	}
}

func TestServer_AnonymousIsRefused(t *testing.T) {
	server := newCollectionServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/collection", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestServer_ReplaceRequiresJSON(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Auth.DevUserID = "dev"
	server := newCollectionServer(t, cfg)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/collection", strings.NewReader("Island"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("Expected status 415, got %d", rec.Code)
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	server := NewServer(nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/decks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Expected allowed origin header, got %q", got)
	}
}
