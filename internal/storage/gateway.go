package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ramonehamilton/MTG-Collection/internal/auth"
	"github.com/ramonehamilton/MTG-Collection/internal/storage/models"
	"github.com/ramonehamilton/MTG-Collection/internal/storage/repository"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Gateway is a per-user JSON document store. Every call resolves the
// current user first and fails with auth.ErrNotAuthenticated before
// touching the database when there is none.
type Gateway struct {
	db      *DB
	docs    repository.DocumentRepository
	imports repository.ImportHistoryRepository
	users   auth.UserResolver
}

// NewGateway creates a document gateway on db.
func NewGateway(db *DB, users auth.UserResolver) *Gateway {
	return &Gateway{
		db:      db,
		docs:    repository.NewDocumentRepository(db.Conn()),
		imports: repository.NewImportHistoryRepository(db.Conn()),
		users:   users,
	}
}

func (g *Gateway) userID(ctx context.Context) (string, error) {
	if g.users == nil {
		return "", auth.ErrNotAuthenticated
	}
	userID, err := g.users.CurrentUserID(ctx)
	if err != nil {
		return "", err
	}
	if userID == "" {
		return "", auth.ErrNotAuthenticated
	}
	return userID, nil
}

// GetAll returns every document in collection, in insertion order.
func (g *Gateway) GetAll(ctx context.Context, collection string) ([]*models.Document, error) {
	userID, err := g.userID(ctx)
	if err != nil {
		return nil, err
	}
	return g.docs.List(ctx, userID, collection)
}

// Get returns one document or ErrNotFound.
func (g *Gateway) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	userID, err := g.userID(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := g.docs.Get(ctx, userID, collection, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return doc, nil
}

// Set stores value under id. With merge, the top-level fields of value are
// laid over the stored object instead of replacing it.
func (g *Gateway) Set(ctx context.Context, collection, id string, value interface{}, merge bool) error {
	userID, err := g.userID(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if !merge {
		return g.docs.Upsert(ctx, userID, collection, id, data)
	}

	return g.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		docs := g.docs.WithTx(tx)

		existing, err := docs.Get(ctx, userID, collection, id)
		if err != nil {
			return err
		}
		if existing != nil {
			data, err = mergeFields(existing.Data, data)
			if err != nil {
				return err
			}
		}

		return docs.Upsert(ctx, userID, collection, id, data)
	})
}

// Delete removes a document. Deleting a missing document returns ErrNotFound.
func (g *Gateway) Delete(ctx context.Context, collection, id string) error {
	userID, err := g.userID(ctx)
	if err != nil {
		return err
	}

	deleted, err := g.docs.Delete(ctx, userID, collection, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return nil
}

// Entry is one document passed to ReplaceAll.
type Entry struct {
	ID    string
	Value interface{}
}

// ReplaceAll atomically swaps the whole collection for entries, preserving
// their order.
func (g *Gateway) ReplaceAll(ctx context.Context, collection string, entries []Entry) error {
	userID, err := g.userID(ctx)
	if err != nil {
		return err
	}

	encoded := make([][]byte, len(entries))
	for i, e := range entries {
		data, err := json.Marshal(e.Value)
		if err != nil {
			return fmt.Errorf("failed to encode document %s: %w", e.ID, err)
		}
		encoded[i] = data
	}

	return g.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		repo := g.docs.WithTx(tx)
		if err := repo.DeleteAll(ctx, userID, collection); err != nil {
			return err
		}
		for i, e := range entries {
			if err := repo.Upsert(ctx, userID, collection, e.ID, encoded[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecordImport stores the outcome of an import for the current user.
func (g *Gateway) RecordImport(ctx context.Context, rec *models.ImportRecord) error {
	userID, err := g.userID(ctx)
	if err != nil {
		return err
	}
	rec.UserID = userID
	return g.imports.Record(ctx, rec)
}

// ImportHistory returns the current user's latest imports, newest first.
func (g *Gateway) ImportHistory(ctx context.Context, limit int) ([]*models.ImportRecord, error) {
	userID, err := g.userID(ctx)
	if err != nil {
		return nil, err
	}
	return g.imports.Recent(ctx, userID, limit)
}

// mergeFields overlays the top-level fields of patch onto base. A base that
// is not a JSON object is replaced.
func mergeFields(base, patch []byte) ([]byte, error) {
	var patchFields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &patchFields); err != nil {
		return patch, nil
	}

	var baseFields map[string]json.RawMessage
	if err := json.Unmarshal(base, &baseFields); err != nil || baseFields == nil {
		return patch, nil
	}

	for k, v := range patchFields {
		baseFields[k] = v
	}

	merged, err := json.Marshal(baseFields)
	if err != nil {
		return nil, fmt.Errorf("failed to merge document: %w", err)
	}
	return merged, nil
}
