package database

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/corsgate/internal/models"
)

// OriginRepository persists the allowed-origin set.
type OriginRepository struct {
	db *DB
}

// NewOriginRepository creates a new origin repository.
func NewOriginRepository(db *DB) *OriginRepository {
	return &OriginRepository{db: db}
}

// List returns every stored origin, oldest first.
func (r *OriginRepository) List(ctx context.Context) ([]models.AllowedOrigin, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT origin, created_by, created_at FROM cors_origins ORDER BY created_at, origin
	`)
	if err != nil {
		return nil, fmt.Errorf("list cors origins: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.AllowedOrigin
	for rows.Next() {
		var o models.AllowedOrigin
		if err := rows.Scan(&o.Origin, &o.CreatedBy, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cors origin: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cors origins: %w", err)
	}
	return out, nil
}

// Origins returns just the origin strings, oldest first.
func (r *OriginRepository) Origins(ctx context.Context) ([]string, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return OriginNames(list), nil
}

// Add stores origin. It reports false when the origin was already stored.
func (r *OriginRepository) Add(ctx context.Context, origin, createdBy string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO cors_origins (origin, created_by, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (origin) DO NOTHING
	`, origin, createdBy, time.Now())
	if err != nil {
		return false, fmt.Errorf("add cors origin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add cors origin: %w", err)
	}
	return n > 0, nil
}

// Remove deletes origin. It reports false when the origin was not stored.
func (r *OriginRepository) Remove(ctx context.Context, origin string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cors_origins WHERE origin = $1`, origin)
	if err != nil {
		return false, fmt.Errorf("remove cors origin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove cors origin: %w", err)
	}
	return n > 0, nil
}

// ReplaceAll swaps the stored set for origins in a single transaction.
func (r *OriginRepository) ReplaceAll(ctx context.Context, origins []string, createdBy string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace cors origins: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cors_origins`); err != nil {
		return fmt.Errorf("clear cors origins: %w", err)
	}
	now := time.Now()
	for i, origin := range origins {
		// Offset timestamps so List keeps the given order.
		at := now.Add(time.Duration(i) * time.Microsecond)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cors_origins (origin, created_by, created_at) VALUES ($1, $2, $3)
			ON CONFLICT (origin) DO NOTHING
		`, origin, createdBy, at); err != nil {
			return fmt.Errorf("insert cors origin %q: %w", origin, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cors origins: %w", err)
	}
	return nil
}

// OriginNames extracts origin strings, dropping duplicates and keeping order.
func OriginNames(list []models.AllowedOrigin) []string {
	if len(list) == 0 {
		return nil
	}
	out := make([]string, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, o := range list {
		if o.Origin != "" && !seen[o.Origin] {
			seen[o.Origin] = true
			out = append(out, o.Origin)
		}
	}
	return out
}
