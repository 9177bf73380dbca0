package db

import (
	"context"
	"fmt"
	"time"

	"monitoring-service/internal/models"
)

// CreateReminder inserts a pending reminder and returns it with its id.
func (d *DB) CreateReminder(ctx context.Context, r models.Reminder) (models.Reminder, error) {
	r.Status = models.ReminderPending
	err := d.Pool.QueryRow(ctx, `
		INSERT INTO reminders (chat_id, text, fire_at, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		r.ChatID, r.Text, r.FireAt, r.Status,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return models.Reminder{}, fmt.Errorf("failed to create reminder: %w", err)
	}
	return r, nil
}

// ListDueReminders returns unclaimed pending reminders due at or before now.
// A reminder with attempts > 0 has been claimed by a previous poll cycle and
// is never returned again; the dispatcher owns its retries from that point.
func (d *DB) ListDueReminders(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT id, created_at, chat_id, text, fire_at, status, attempts, COALESCE(last_error, ''), sent_at
		FROM reminders
		WHERE status = 'pending' AND attempts = 0 AND fire_at <= $1
		ORDER BY fire_at ASC
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	defer rows.Close()

	var reminders []models.Reminder
	for rows.Next() {
		var r models.Reminder
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.ChatID, &r.Text, &r.FireAt, &r.Status, &r.Attempts, &r.LastError, &r.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// ClaimReminder durably marks the reminder as in delivery before the first
// send happens. A crash mid-delivery leaves the reminder claimed, so it is
// dropped rather than double-sent (at-most-once).
func (d *DB) ClaimReminder(ctx context.Context, id int64) error {
	tag, err := d.Pool.Exec(ctx, `
		UPDATE reminders SET attempts = attempts + 1
		WHERE id = $1 AND status = 'pending' AND attempts = 0`, id)
	if err != nil {
		return fmt.Errorf("failed to claim reminder %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reminder %d already claimed or terminal", id)
	}
	return nil
}

// MarkReminderSent commits the terminal sent state. attempts is the number of
// delivery attempts the send actually used; it overwrites the claim marker.
func (d *DB) MarkReminderSent(ctx context.Context, id int64, attempts int) error {
	_, err := d.Pool.Exec(ctx, `
		UPDATE reminders
		SET status = 'sent', attempts = $2, sent_at = now(), last_error = NULL
		WHERE id = $1`, id, attempts)
	if err != nil {
		return fmt.Errorf("failed to mark reminder %d sent: %w", id, err)
	}
	return nil
}

// MarkReminderFailed commits the terminal failed state after retry exhaustion,
// recording how many attempts were burned.
func (d *DB) MarkReminderFailed(ctx context.Context, id int64, attempts int, lastError string) error {
	if len(lastError) > 500 {
		lastError = lastError[:500]
	}
	_, err := d.Pool.Exec(ctx, `
		UPDATE reminders
		SET status = 'failed', attempts = $2, last_error = $3
		WHERE id = $1`, id, attempts, lastError)
	if err != nil {
		return fmt.Errorf("failed to mark reminder %d failed: %w", id, err)
	}
	return nil
}

// ListRemindersByChat returns the most recent reminders for a chat.
func (d *DB) ListRemindersByChat(ctx context.Context, chatID int64, limit int) ([]models.Reminder, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT id, created_at, chat_id, text, fire_at, status, attempts, COALESCE(last_error, ''), sent_at
		FROM reminders
		WHERE chat_id = $1
		ORDER BY fire_at DESC
		LIMIT $2`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders for chat %d: %w", chatID, err)
	}
	defer rows.Close()

	var reminders []models.Reminder
	for rows.Next() {
		var r models.Reminder
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.ChatID, &r.Text, &r.FireAt, &r.Status, &r.Attempts, &r.LastError, &r.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}
