package storage

import (
	"testing"
)

// NewTestDB opens an in-memory database with the schema applied and closes
// it when the test ends. It is exported for use in other package tests.
func NewTestDB(t testing.TB) *DB {
	t.Helper()

	db, err := Open(DefaultConfig(":memory:"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}
