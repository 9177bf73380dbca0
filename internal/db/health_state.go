package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"monitoring-service/internal/models"
)

// GetHealthState returns the last-known state for a source, or nil when the
// source has never been observed.
func (d *DB) GetHealthState(ctx context.Context, sourceID string) (*models.HealthState, error) {
	var st models.HealthState
	err := d.Pool.QueryRow(ctx, `
		SELECT source_id, last_status, last_changed_at, last_checked_at, consecutive_failures
		FROM health_state
		WHERE source_id = $1`, sourceID,
	).Scan(&st.SourceID, &st.LastStatus, &st.LastChangedAt, &st.LastCheckedAt, &st.ConsecutiveFailures)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get health state for %s: %w", sourceID, err)
	}
	return &st, nil
}

// PutHealthState upserts the state for a source. Writes for a given source id
// are serialized by the primary key; last writer wins.
func (d *DB) PutHealthState(ctx context.Context, st models.HealthState) error {
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO health_state (source_id, last_status, last_changed_at, last_checked_at, consecutive_failures)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source_id) DO UPDATE SET
			last_status = EXCLUDED.last_status,
			last_changed_at = EXCLUDED.last_changed_at,
			last_checked_at = EXCLUDED.last_checked_at,
			consecutive_failures = EXCLUDED.consecutive_failures`,
		st.SourceID, st.LastStatus, st.LastChangedAt, st.LastCheckedAt, st.ConsecutiveFailures)
	if err != nil {
		return fmt.Errorf("failed to put health state for %s: %w", st.SourceID, err)
	}
	return nil
}

// ListHealthStates returns all known source states ordered by source id.
func (d *DB) ListHealthStates(ctx context.Context) ([]models.HealthState, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT source_id, last_status, last_changed_at, last_checked_at, consecutive_failures
		FROM health_state
		ORDER BY source_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list health states: %w", err)
	}
	defer rows.Close()

	var states []models.HealthState
	for rows.Next() {
		var st models.HealthState
		if err := rows.Scan(&st.SourceID, &st.LastStatus, &st.LastChangedAt, &st.LastCheckedAt, &st.ConsecutiveFailures); err != nil {
			return nil, fmt.Errorf("failed to scan health state: %w", err)
		}
		states = append(states, st)
	}
	return states, rows.Err()
}
