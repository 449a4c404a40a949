package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ramonehamilton/MTG-Collection/internal/storage/models"
)

// ImportHistoryRepository records completed imports.
type ImportHistoryRepository interface {
	// Record stores a completed import and sets its ID.
	Record(ctx context.Context, rec *models.ImportRecord) error

	// Recent returns a user's latest imports, newest first.
	Recent(ctx context.Context, userID string, limit int) ([]*models.ImportRecord, error)
}

// importHistoryRepository is the concrete implementation of ImportHistoryRepository.
type importHistoryRepository struct {
	db *sql.DB
}

// NewImportHistoryRepository creates a new import history repository.
func NewImportHistoryRepository(db *sql.DB) ImportHistoryRepository {
	return &importHistoryRepository{db: db}
}

// Record stores a completed import and sets its ID.
func (r *importHistoryRepository) Record(ctx context.Context, rec *models.ImportRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO import_history (user_id, source, total_rows, imported, skipped, unresolved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		rec.UserID, rec.Source, rec.TotalRows, rec.Imported, rec.Skipped, rec.Unresolved, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record import: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get import id: %w", err)
	}
	rec.ID = id

	return nil
}

// Recent returns a user's latest imports, newest first.
func (r *importHistoryRepository) Recent(ctx context.Context, userID string, limit int) ([]*models.ImportRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, user_id, source, total_rows, imported, skipped, unresolved, created_at
		FROM import_history
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get import history: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	records := []*models.ImportRecord{}
	for rows.Next() {
		rec := &models.ImportRecord{}
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Source, &rec.TotalRows,
			&rec.Imported, &rec.Skipped, &rec.Unresolved, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating import history: %w", err)
	}

	return records, nil
}
