package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("test.db")

	if config.Path != "test.db" {
		t.Errorf("expected path 'test.db', got '%s'", config.Path)
	}

	if config.MaxOpenConns != 10 {
		t.Errorf("expected MaxOpenConns 10, got %d", config.MaxOpenConns)
	}

	if config.BusyTimeout != 5*time.Second {
		t.Errorf("expected BusyTimeout 5s, got %v", config.BusyTimeout)
	}

	if config.JournalMode != "WAL" {
		t.Errorf("expected JournalMode 'WAL', got '%s'", config.JournalMode)
	}

	if !config.AutoMigrate {
		t.Error("expected AutoMigrate to default to true")
	}
}

func TestOpen_InMemoryAppliesSchema(t *testing.T) {
	db := NewTestDB(t)

	for _, table := range []string{"documents", "card_cache", "settings", "import_history"} {
		var name string
		err := db.Conn().QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("expected table %s to exist: %v", table, err)
		}
	}
}

func TestOpen_FileRunsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "collection.db")

	db, err := Open(DefaultConfig(path))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if _, err := db.Conn().Exec(`INSERT INTO settings (key, value) VALUES ('k', '"v"')`); err != nil {
		t.Fatalf("expected migrated schema: %v", err)
	}

	mgr, err := NewMigrationManager(path)
	if err != nil {
		t.Fatalf("failed to create migration manager: %v", err)
	}
	defer mgr.Close()

	version, dirty, err := mgr.Version()
	if err != nil {
		t.Fatalf("failed to read version: %v", err)
	}
	if dirty {
		t.Error("database is dirty after migrations")
	}
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}
}

func TestOpenWithNilConfig(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Error("expected error when opening with nil config")
	}
}

func TestClose(t *testing.T) {
	db, err := Open(DefaultConfig(":memory:"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("failed to close database: %v", err)
	}

	if err := db.Ping(); err == nil {
		t.Error("expected error when pinging closed database")
	}
}

func TestWithTransaction(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		err := db.WithTransaction(ctx, func(tx *sql.Tx) error {
			_, err := tx.Exec(`INSERT INTO settings (key, value) VALUES ('committed', '1')`)
			return err
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var n int
		_ = db.Conn().QueryRow(`SELECT COUNT(*) FROM settings WHERE key = 'committed'`).Scan(&n)
		if n != 1 {
			t.Errorf("expected committed row, got %d", n)
		}
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := db.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(`INSERT INTO settings (key, value) VALUES ('rolled', '1')`); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}

		var n int
		_ = db.Conn().QueryRow(`SELECT COUNT(*) FROM settings WHERE key = 'rolled'`).Scan(&n)
		if n != 0 {
			t.Errorf("expected rollback, found %d rows", n)
		}
	})

	t.Run("rolls back and re-panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
			var n int
			_ = db.Conn().QueryRow(`SELECT COUNT(*) FROM settings WHERE key = 'panicked'`).Scan(&n)
			if n != 0 {
				t.Errorf("expected rollback, found %d rows", n)
			}
		}()

		_ = db.WithTransaction(ctx, func(tx *sql.Tx) error {
			_, _ = tx.Exec(`INSERT INTO settings (key, value) VALUES ('panicked', '1')`)
			panic("boom")
		})
	})
}
