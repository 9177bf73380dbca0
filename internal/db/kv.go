package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetState returns the stored value for a service-state key, or "" when the
// key is absent. Used for durable dedup markers such as daily summary slots.
func (d *DB) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := d.Pool.QueryRow(ctx,
		`SELECT value FROM service_state WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get state %s: %w", key, err)
	}
	return value, nil
}

// SetState upserts a service-state key.
func (d *DB) SetState(ctx context.Context, key, value string) error {
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO service_state (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to set state %s: %w", key, err)
	}
	return nil
}
