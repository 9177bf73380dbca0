package models

import "time"

// Audit record kinds.
const (
	AuditDelivery     = "delivery"
	AuditClassifier   = "classifier"
	AuditReminder     = "reminder"
	AuditUnauthorized = "unauthorized_access"
)

// Audit outcomes for delivery attempts.
const (
	OutcomeSent           = "sent"
	OutcomeDeliveryError  = "delivery_error"
	OutcomeDeliveryFailed = "delivery_failed"
)

// AuditRecord is one append-only entry in the delivery/decision audit trail.
// Records are never mutated or deleted by the service.
type AuditRecord struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	SubjectID string    `json:"subject_id"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
