package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ramonehamilton/MTG-Collection/internal/storage/models"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DocumentRepository handles per-user JSON documents.
type DocumentRepository interface {
	// List returns every document in a collection, in insertion order.
	List(ctx context.Context, userID, collection string) ([]*models.Document, error)

	// Get returns one document, or nil if it does not exist.
	Get(ctx context.Context, userID, collection, id string) (*models.Document, error)

	// Upsert creates or overwrites a document.
	Upsert(ctx context.Context, userID, collection, id string, data []byte) error

	// Delete removes a document and reports whether it existed.
	Delete(ctx context.Context, userID, collection, id string) (bool, error)

	// DeleteAll removes every document in a collection.
	DeleteAll(ctx context.Context, userID, collection string) error

	// WithTx returns a repository bound to tx.
	WithTx(tx *sql.Tx) DocumentRepository
}

// documentRepository is the concrete implementation of DocumentRepository.
type documentRepository struct {
	db Querier
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db *sql.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *documentRepository) WithTx(tx *sql.Tx) DocumentRepository {
	return &documentRepository{db: tx}
}

// List returns every document in a collection, in insertion order.
func (r *documentRepository) List(ctx context.Context, userID, collection string) ([]*models.Document, error) {
	query := `
		SELECT id, data, created_at, updated_at
		FROM documents
		WHERE user_id = ? AND collection = ?
		ORDER BY rowid
	`

	rows, err := r.db.QueryContext(ctx, query, userID, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	docs := []*models.Document{}
	for rows.Next() {
		doc := &models.Document{}
		var data string
		if err := rows.Scan(&doc.ID, &data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Data = []byte(data)
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return docs, nil
}

// Get returns one document, or nil if it does not exist.
func (r *documentRepository) Get(ctx context.Context, userID, collection, id string) (*models.Document, error) {
	query := `
		SELECT id, data, created_at, updated_at
		FROM documents
		WHERE user_id = ? AND collection = ? AND id = ?
	`

	doc := &models.Document{}
	var data string
	err := r.db.QueryRowContext(ctx, query, userID, collection, id).Scan(&doc.ID, &data, &doc.CreatedAt, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	doc.Data = []byte(data)
	return doc, nil
}

// Upsert creates or overwrites a document.
func (r *documentRepository) Upsert(ctx context.Context, userID, collection, id string, data []byte) error {
	query := `
		INSERT INTO documents (user_id, collection, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, collection, id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, query, userID, collection, id, string(data), now, now); err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	return nil
}

// Delete removes a document and reports whether it existed.
func (r *documentRepository) Delete(ctx context.Context, userID, collection, id string) (bool, error) {
	query := `DELETE FROM documents WHERE user_id = ? AND collection = ? AND id = ?`

	result, err := r.db.ExecContext(ctx, query, userID, collection, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

// DeleteAll removes every document in a collection.
func (r *documentRepository) DeleteAll(ctx context.Context, userID, collection string) error {
	query := `DELETE FROM documents WHERE user_id = ? AND collection = ?`

	if _, err := r.db.ExecContext(ctx, query, userID, collection); err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}

	return nil
}
