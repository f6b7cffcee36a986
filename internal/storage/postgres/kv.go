// Package postgres is a storage.Backend over a single key-value table, one
// row per (profile, key).
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS storefront_kv (
	profile    TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      TEXT        NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (profile, key)
)`

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

type Backend struct {
	pool    *pgxpool.Pool
	profile string
}

func New(pool *pgxpool.Pool, profile string) *Backend {
	return &Backend{pool: pool, profile: profile}
}

// EnsureSchema creates the key-value table when it does not exist yet.
func (b *Backend) EnsureSchema(ctx context.Context) error {
	if _, err := b.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create storefront_kv: %w", err)
	}
	return nil
}

func (b *Backend) Available() bool { return b != nil && b.pool != nil }

func (b *Backend) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	query := `SELECT value FROM storefront_kv WHERE profile = $1 AND key = $2`
	err := b.pool.QueryRow(ctx, query, b.profile, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return value, true, nil
}

func (b *Backend) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO storefront_kv (profile, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (profile, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	if _, err := b.pool.Exec(ctx, query, b.profile, key, value); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM storefront_kv WHERE profile = $1 AND key = $2`
	if _, err := b.pool.Exec(ctx, query, b.profile, key); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}
