package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS device_storage (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PostgresStorage keeps device data in a PostgreSQL table. Each device
// namespace is independent; nothing is merged across devices.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage ensures the storage table exists.
func NewPostgresStorage(ctx context.Context, pool *pgxpool.Pool) (*PostgresStorage, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("create device_storage table: %w", err)
	}
	return &PostgresStorage{pool: pool}, nil
}

func (s *PostgresStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM device_storage WHERE key = $1`,
		key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get item: %w", err)
	}
	return value, true, nil
}

func (s *PostgresStorage) SetItem(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO device_storage (key, value, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key,
		value,
	)
	if err != nil {
		return fmt.Errorf("set item: %w", err)
	}
	return nil
}

func (s *PostgresStorage) RemoveItem(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM device_storage WHERE key = $1`, key); err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	return nil
}

// HealthCheck pings the pool.
func (s *PostgresStorage) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
