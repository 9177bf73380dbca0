package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	d := &DB{Pool: pool}
	if err := d.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) Close() {
	d.Pool.Close()
}

func (d *DB) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS health_state (
			source_id TEXT PRIMARY KEY,
			last_status TEXT NOT NULL,
			last_changed_at TIMESTAMPTZ NOT NULL,
			last_checked_at TIMESTAMPTZ NOT NULL,
			consecutive_failures INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS reminders (
			id BIGSERIAL PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			chat_id BIGINT NOT NULL,
			text TEXT NOT NULL,
			fire_at TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			last_error TEXT,
			sent_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id BIGSERIAL PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			kind TEXT NOT NULL,
			subject_id TEXT NOT NULL,
			outcome TEXT NOT NULL,
			detail TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS service_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range statements {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
