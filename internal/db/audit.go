package db

import (
	"context"
	"fmt"

	"monitoring-service/internal/models"
)

// AppendAudit inserts one audit record. The audit log is append-only: there
// is no update or delete path anywhere in this package.
func (d *DB) AppendAudit(ctx context.Context, rec models.AuditRecord) error {
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO audit_log (kind, subject_id, outcome, detail)
		VALUES ($1, $2, $3, $4)`,
		rec.Kind, rec.SubjectID, rec.Outcome, rec.Detail)
	if err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

// ListAudit returns the newest audit records, optionally only failures.
func (d *DB) ListAudit(ctx context.Context, limit int, onlyError bool) ([]models.AuditRecord, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}
	query := `
		SELECT id, created_at, kind, subject_id, outcome, COALESCE(detail, '')
		FROM audit_log`
	if onlyError {
		query += ` WHERE outcome IN ('delivery_error', 'delivery_failed', 'denied')`
	}
	query += ` ORDER BY id DESC LIMIT $1`

	rows, err := d.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer rows.Close()

	var records []models.AuditRecord
	for rows.Next() {
		var rec models.AuditRecord
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.Kind, &rec.SubjectID, &rec.Outcome, &rec.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
