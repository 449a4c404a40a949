// Package main imports retailer exports and deck lists from the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ramonehamilton/MTG-Collection/internal/app"
	"github.com/ramonehamilton/MTG-Collection/internal/auth"
	"github.com/ramonehamilton/MTG-Collection/internal/collection"
	"github.com/ramonehamilton/MTG-Collection/internal/config"
	"github.com/ramonehamilton/MTG-Collection/internal/deck"
	"github.com/ramonehamilton/MTG-Collection/internal/storage"
	"github.com/ramonehamilton/MTG-Collection/internal/storage/models"
	"github.com/ramonehamilton/MTG-Collection/internal/version"
)

// keepBackups is how many -backup copies are kept.
const keepBackups = 10

var (
	configPath = flag.String("config", "", "Config file (default: ~/.mtg-collection/config.toml)")
	dbPath     = flag.String("db-path", "", "Database path (overrides config)")
	user       = flag.String("user", "", "User to import for (default: config dev_user_id)")
	format     = flag.String("format", "", "Input format: csv or text (default: from file extension)")
	asDeck     = flag.Bool("deck", false, "Save each file as a deck instead of adding it to the collection")
	deckFormat = flag.String("deck-format", "", "Deck format for -deck: Commander, Standard or Draft")
	history    = flag.Int("history", 0, "Print the last N imports and exit")
	backup     = flag.Bool("backup", false, "Back up the database before importing")
	quiet      = flag.Bool("quiet", false, "Only print errors")
)

var showVersion = flag.Bool("version", false, "Print the version and exit")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] FILE...\n\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Version)
		return
	}

	if *quiet {
		log.SetOutput(io.Discard)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	userID := *user
	if userID == "" {
		userID = cfg.Auth.DevUserID
	}
	if userID == "" {
		fmt.Fprintln(os.Stderr, "No user: pass -user or set dev_user_id in the config")
		os.Exit(2)
	}

	svc, err := app.Open(cfg, auth.StaticResolver{UserID: userID})
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() { _ = svc.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *history > 0 {
		if err := printHistory(ctx, svc.Collection, *history); err != nil {
			log.Fatalf("Failed to read history: %v", err)
		}
		return
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if *backup {
		path, err := svc.DB.Backup(ctx, svc.BackupDir())
		if err != nil {
			log.Fatalf("Backup failed: %v", err)
		}
		if _, err := storage.PruneBackups(svc.BackupDir(), keepBackups); err != nil {
			log.Printf("Failed to prune old backups: %v", err)
		}
		if !*quiet {
			fmt.Printf("Backed up to %s\n", path)
		}
	}

	if !*quiet {
		svc.Events.Register(newProgressPrinter(os.Stdout))
	}

	failed := 0
	for _, path := range flag.Args() {
		if *asDeck {
			err = importDeck(ctx, svc.Decks, path)
		} else {
			err = importCollection(ctx, svc.Collection, path)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
		}
		if ctx.Err() != nil {
			break
		}
	}

	if !*asDeck && !*quiet {
		if summary, err := svc.Collection.Summary(ctx); err == nil {
			fmt.Printf("\nCollection: %d cards, $%.2f (%d unpriced)\n", summary.Size, summary.Value, summary.Unpriced)
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func importCollection(ctx context.Context, svc *collection.Service, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	inputFormat := collection.Format(strings.ToLower(*format))
	if inputFormat == "" {
		inputFormat = collection.FormatForFile(path)
	}

	result, err := svc.Import(ctx, f, collection.ImportOptions{
		Source: filepath.Base(path),
		Format: inputFormat,
	})
	if err != nil {
		return err
	}

	if !*quiet {
		fmt.Printf("%s: %d cards from %d rows, %d skipped, %d unresolved\n",
			filepath.Base(path), len(result.Cards), result.Total, result.Skipped, result.Unresolved)
		for _, name := range result.UnresolvedNames {
			fmt.Printf("  not found: %s\n", name)
		}
	}
	return nil
}

func importDeck(ctx context.Context, svc *deck.Service, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	opts := deck.ImportOptions{}
	if *deckFormat != "" {
		parsed, err := models.ParseFormat(*deckFormat)
		if err != nil {
			return err
		}
		opts.Format = parsed
	}

	draft, result, err := svc.ImportDecklist(ctx, f, opts)
	if err != nil {
		return err
	}
	if draft.Name == models.UnnamedDeck {
		draft.Name = models.DeckName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}

	saved, err := svc.Save(ctx, draft)
	if err != nil {
		return err
	}

	if !*quiet {
		fmt.Printf("%s: saved deck %q (%s) with %d cards, %d unresolved\n",
			filepath.Base(path), saved.Name, saved.Format, len(saved.Cards), result.Unresolved)
	}
	return nil
}

func printHistory(ctx context.Context, svc *collection.Service, limit int) error {
	records, err := svc.History(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No imports yet.")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%s  %-30s %4d rows  %4d imported  %3d skipped  %3d unresolved\n",
			rec.CreatedAt.Local().Format("2006-01-02 15:04"), rec.Source,
			rec.TotalRows, rec.Imported, rec.Skipped, rec.Unresolved)
	}
	return nil
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
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	return cfg, nil
}
