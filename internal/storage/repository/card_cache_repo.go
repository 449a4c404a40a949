package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CardCacheRepository persists resolved reference cards by lookup key.
type CardCacheRepository interface {
	// GetCard returns the encoded record stored under key.
	GetCard(ctx context.Context, key string) ([]byte, bool, error)

	// PutCard stores an encoded record, overwriting any previous value.
	PutCard(ctx context.Context, key string, data []byte) error

	// Count returns the number of cached keys.
	Count(ctx context.Context) (int, error)

	// Clear removes every cached record.
	Clear(ctx context.Context) error
}

// cardCacheRepository is the concrete implementation of CardCacheRepository.
type cardCacheRepository struct {
	db *sql.DB
}

// NewCardCacheRepository creates a new card cache repository.
func NewCardCacheRepository(db *sql.DB) CardCacheRepository {
	return &cardCacheRepository{db: db}
}

// GetCard returns the encoded record stored under key.
func (r *cardCacheRepository) GetCard(ctx context.Context, key string) ([]byte, bool, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM card_cache WHERE cache_key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached card: %w", err)
	}
	return []byte(data), true, nil
}

// PutCard stores an encoded record, overwriting any previous value.
func (r *cardCacheRepository) PutCard(ctx context.Context, key string, data []byte) error {
	query := `
		INSERT INTO card_cache (cache_key, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, key, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to cache card: %w", err)
	}
	return nil
}

// Count returns the number of cached keys.
func (r *cardCacheRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM card_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cached cards: %w", err)
	}
	return n, nil
}

// Clear removes every cached record.
func (r *cardCacheRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM card_cache`); err != nil {
		return fmt.Errorf("failed to clear card cache: %w", err)
	}
	return nil
}
