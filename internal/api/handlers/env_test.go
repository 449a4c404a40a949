package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/MTG-Collection/internal/auth"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/cardref"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/scryfall"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/sets"
	"github.com/ramonehamilton/MTG-Collection/internal/collection"
	"github.com/ramonehamilton/MTG-Collection/internal/collection/importer"
	"github.com/ramonehamilton/MTG-Collection/internal/deck"
	"github.com/ramonehamilton/MTG-Collection/internal/storage"
	"github.com/ramonehamilton/MTG-Collection/internal/storage/models"
	"github.com/ramonehamilton/MTG-Collection/internal/storage/repository"
)

const testUserHeader = "X-Test-User"

type stubResolver map[string]*cardref.Record

func (s stubResolver) Resolve(_ context.Context, q cardref.Query) (*cardref.Record, error) {
	if rec, ok := s[strings.ToLower(q.Name)]; ok {
		return rec, nil
	}
	return nil, cardref.ErrNotFound
}

type stubAutocomplete []string

func (s stubAutocomplete) Autocomplete(_ context.Context, query string) ([]string, error) {
	var out []string
	for _, name := range s {
		if strings.HasPrefix(strings.ToLower(name), strings.ToLower(query)) {
			out = append(out, name)
		}
	}
	return out, nil
}

type countingCatalog struct {
	calls int32
}

func (c *countingCatalog) GetSets(context.Context) (*scryfall.SetList, error) {
	atomic.AddInt32(&c.calls, 1)
	return &scryfall.SetList{Data: []scryfall.Set{
		{Code: "m10", Name: "Magic 2010"},
		{Code: "zen", Name: "Zendikar"},
	}}, nil
}

type testEnv struct {
	server  *httptest.Server
	catalog *countingCatalog
}

// newTestEnv serves the handlers over real services on an in-memory
// database. Requests carry their user in testUserHeader.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	price := 1.5
	bolt := &cardref.Record{CardAttributes: models.CardAttributes{
		Name: "Lightning Bolt", Type: models.TypeInstant, Colors: []string{"R"}, Price: &price,
	}}
	resolver := stubResolver{
		"island":         {CardAttributes: models.CardAttributes{Name: "Island", Type: models.TypeLand}},
		"lightning bolt": bolt,
	}

	db := storage.NewTestDB(t)
	users := auth.ContextResolver{}
	gateway := storage.NewGateway(db, users)
	catalog := &countingCatalog{}
	reconciler := sets.NewReconciler(catalog, repository.NewSettingsRepository(db.Conn()))
	pipeline := importer.NewPipeline(resolver, reconciler, 2)
	collectionSvc := collection.NewService(gateway, users, pipeline, nil)
	deckSvc := deck.NewService(gateway, users, collectionSvc, pipeline, nil)

	collectionHandler := NewCollectionHandler(collectionSvc)
	deckHandler := NewDeckHandler(deckSvc)
	cardHandler := NewCardHandler(resolver, stubAutocomplete{"Lightning Bolt", "Lightning Helix", "Island"})
	setHandler := NewSetHandler(reconciler, nil)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := r.Header.Get(testUserHeader); user != "" {
				r = r.WithContext(auth.WithUserID(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Post("/collection/import", collectionHandler.Import)
	r.Get("/collection", collectionHandler.GetCollection)
	r.Put("/collection", collectionHandler.ReplaceCollection)
	r.Get("/collection/summary", collectionHandler.GetSummary)
	r.Put("/collection/quantity", collectionHandler.SetQuantity)
	r.Get("/collection/history", collectionHandler.GetHistory)
	r.Post("/decks/import", deckHandler.ImportDeck)
	r.Get("/decks", deckHandler.GetDecks)
	r.Post("/decks", deckHandler.CreateDeck)
	r.Get("/decks/{deckID}", deckHandler.GetDeck)
	r.Put("/decks/{deckID}", deckHandler.UpdateDeck)
	r.Delete("/decks/{deckID}", deckHandler.DeleteDeck)
	r.Get("/decks/{deckID}/summary", deckHandler.GetTypeSummary)
	r.Get("/decks/{deckID}/hand", deckHandler.GetOpeningHand)
	r.Get("/decks/{deckID}/export", deckHandler.ExportDeck)
	r.Get("/cards/resolve", cardHandler.ResolveCard)
	r.Get("/cards/suggest", cardHandler.Suggest)
	r.Get("/sets/resolve", setHandler.ResolveSet)
	r.Post("/sets/refresh", setHandler.RefreshSets)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return &testEnv{server: server, catalog: catalog}
}

// do sends a request as user ("" for anonymous) and returns the status and
// body.
func (e *testEnv) do(t *testing.T, user, method, path, contentType, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if user != "" {
		req.Header.Set(testUserHeader, user)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

// decodeData unmarshals the "data" field of a success envelope into v.
func decodeData(t *testing.T, body []byte, v interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode envelope %s: %v", body, err)
	}
	if err := json.Unmarshal(envelope.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", envelope.Data, err)
	}
}
