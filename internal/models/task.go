package models

import "time"

// AlertTask is one outbound notification owned by the dispatcher until it
// reaches a terminal outcome (delivered or exhausted). Attempts never exceeds
// MaxAttempts; every attempt is recorded in the audit log before the task
// advances.
type AlertTask struct {
	ID          string    `json:"id"`
	ChatID      int64     `json:"chat_id"`
	Message     string    `json:"message"`
	Priority    Priority  `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	// RepeatCount is the total number of reinforcement deliveries for
	// CRITICAL tasks (including the initial one). Ignored below CRITICAL.
	RepeatCount int `json:"repeat_count,omitempty"`
}
