// Package app assembles the services shared by the API server and the
// command-line importer.
package app

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/ramonehamilton/MTG-Collection/internal/auth"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/bulk"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/cardref"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/scryfall"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/sets"
	"github.com/ramonehamilton/MTG-Collection/internal/collection"
	"github.com/ramonehamilton/MTG-Collection/internal/collection/importer"
	"github.com/ramonehamilton/MTG-Collection/internal/config"
	"github.com/ramonehamilton/MTG-Collection/internal/deck"
	"github.com/ramonehamilton/MTG-Collection/internal/events"
	"github.com/ramonehamilton/MTG-Collection/internal/storage"
	"github.com/ramonehamilton/MTG-Collection/internal/storage/repository"
)

// Services holds the wired application.
type Services struct {
	DBPath     string
	DB         *storage.DB
	Store      *storage.Gateway
	Oracle     *scryfall.Client
	Resolver   *cardref.Resolver
	Sets       *sets.Reconciler
	Pipeline   *importer.Pipeline
	Collection *collection.Service
	Decks      *deck.Service
	Events     *events.EventDispatcher
}

// Open builds every service from cfg. users decides whose data each call
// touches. The caller owns the result and must Close it.
func Open(cfg *config.Config, users auth.UserResolver) (*Services, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		p, err := config.DefaultDatabasePath()
		if err != nil {
			return nil, err
		}
		dbPath = p
	}

	db, err := storage.Open(storage.DefaultConfig(dbPath))
	if err != nil {
		return nil, err
	}
	log.Printf("[App] Database: %s", dbPath)

	interval, _ := cfg.GetRateInterval()
	timeout, _ := cfg.GetTimeout()
	oracle := scryfall.NewClientWithOptions(scryfall.Options{
		BaseURL:      cfg.Scryfall.BaseURL,
		RateInterval: interval,
		RetryMax:     cfg.Scryfall.RetryMax,
		Timeout:      timeout,
		UserAgent:    cfg.Scryfall.UserAgent,
	})

	cache := cardref.NewPersistentCache(repository.NewCardCacheRepository(db.Conn()))
	resolver := cardref.NewResolver(cache, bulkCache(cfg.Bulk, oracle), oracle)
	reconciler := sets.NewReconciler(oracle, repository.NewSettingsRepository(db.Conn()))
	pipeline := importer.NewPipeline(resolver, reconciler, cfg.Import.Concurrency)

	dispatcher := events.NewEventDispatcher()
	store := storage.NewGateway(db, users)
	collectionSvc := collection.NewService(store, users, pipeline, dispatcher)

	return &Services{
		DBPath:     dbPath,
		DB:         db,
		Store:      store,
		Oracle:     oracle,
		Resolver:   resolver,
		Sets:       reconciler,
		Pipeline:   pipeline,
		Collection: collectionSvc,
		Decks:      deck.NewService(store, users, collectionSvc, pipeline, dispatcher),
		Events:     dispatcher,
	}, nil
}

// bulkCache picks the bulk source: a local file, then a download URL, then
// an oracle bulk type. Nil means every miss goes to the oracle.
func bulkCache(cfg config.BulkConfig, oracle *scryfall.Client) *bulk.Cache {
	switch {
	case cfg.Path != "":
		return bulk.NewCache(bulk.FileLoader(cfg.Path))
	case cfg.URL != "":
		return bulk.NewCache(bulk.URLLoader(oracle, cfg.URL))
	case cfg.Type != "":
		return bulk.NewCache(bulk.OracleLoader(oracle, cfg.Type))
	}
	log.Printf("[App] No bulk source configured; lookups go to the oracle")
	return nil
}

// BackupDir is where database backups are written.
func (s *Services) BackupDir() string {
	return filepath.Join(filepath.Dir(s.DBPath), "backups")
}

// Close releases the database.
func (s *Services) Close() error {
	return s.DB.Close()
}
