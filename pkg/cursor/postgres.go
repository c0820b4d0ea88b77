package cursor

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists watermarks in a single-table Postgres schema.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool and ensures the
// cursor table exists.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS zendesk_cursors (
			key        TEXT PRIMARY KEY,
			value      BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return nil, fmt.Errorf("ensure zendesk_cursors table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) GetCursor(ctx context.Context, key string) (int64, bool, error) {
	var value int64
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM zendesk_cursors WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("postgres get cursor %q: %w", key, err)
	}
	return value, true, nil
}

func (s *PostgresStore) SetCursor(ctx context.Context, key string, value int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO zendesk_cursors (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("postgres set cursor %q: %w", key, err)
	}
	return nil
}
