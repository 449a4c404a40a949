// Package main runs the collection REST API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ramonehamilton/MTG-Collection/internal/api"
	"github.com/ramonehamilton/MTG-Collection/internal/app"
	"github.com/ramonehamilton/MTG-Collection/internal/auth"
	"github.com/ramonehamilton/MTG-Collection/internal/collection/watcher"
	"github.com/ramonehamilton/MTG-Collection/internal/config"
	"github.com/ramonehamilton/MTG-Collection/internal/events"
	"github.com/ramonehamilton/MTG-Collection/internal/version"
)

var (
	configPath = flag.String("config", "", "Config file (default: ~/.mtg-collection/config.toml)")
	port       = flag.Int("port", 0, "API server port (overrides config)")
	dbPath     = flag.String("db-path", "", "Database path (overrides config)")
	verbose    = flag.Bool("verbose", false, "Log every event, including import progress")
)

var showVersion = flag.Bool("version", false, "Print the version and exit")

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Version)
		return
	}

	fmt.Println("MTG Collection - REST API Server")
	fmt.Println("================================")
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	svc, err := app.Open(cfg, auth.ContextResolver{})
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	server := api.NewServer(&api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Auth: auth.MiddlewareOptions{
			JWTSecret: cfg.Auth.JWTSecret,
			DevUserID: cfg.Auth.DevUserID,
		},
	}, &api.Services{
		Collection: svc.Collection,
		Decks:      svc.Decks,
		Resolver:   svc.Resolver,
		Suggest:    svc.Oracle,
		Sets:       svc.Sets,
		Events:     svc.Events,
	})

	svc.Events.Register(events.NewLoggingObserver(*verbose))
	svc.Events.Register(server.NewWebSocketObserver())

	if cfg.Auth.JWTSecret == "" && cfg.Auth.DevUserID == "" {
		log.Printf("Warning: no JWT secret or dev user configured; every data request will be refused")
	}

	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start API server: %v", err)
	}

	// The drop folder has no request to carry a user, so it needs the dev user
	var w *watcher.Watcher
	if cfg.Import.WatchDir != "" {
		if cfg.Auth.DevUserID == "" {
			log.Printf("Warning: watch_dir is set but dev_user_id is empty; folder imports disabled")
		} else {
			ctx := auth.WithUserID(context.Background(), cfg.Auth.DevUserID)
			w = watcher.New(cfg.Import.WatchDir, svc.Collection)
			if err := w.Start(ctx); err != nil {
				log.Fatalf("Failed to watch %s: %v", cfg.Import.WatchDir, err)
			}
			fmt.Printf("Watching %s for exports\n", cfg.Import.WatchDir)
		}
	}

	fmt.Println()
	fmt.Printf("API server running at http://localhost:%d\n", cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println()
	fmt.Println("Shutting down...")

	if w != nil {
		w.Stop()
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	fmt.Println("API server stopped.")
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	return cfg, nil
}
