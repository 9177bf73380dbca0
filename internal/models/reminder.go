package models

import "time"

// Reminder states. A reminder reaches sent or failed exactly once and is
// never re-fired afterwards, including across restarts.
const (
	ReminderPending = "pending"
	ReminderSent    = "sent"
	ReminderFailed  = "failed"
)

// Reminder is a user-scheduled one-time notification consumed by the
// reminder queue and delivered through the alert dispatcher. Attempts is 1
// while the reminder is claimed and in delivery; the terminal mark overwrites
// it with the number of delivery attempts actually used.
type Reminder struct {
	ID        int64      `json:"id"`
	ChatID    int64      `json:"chat_id"`
	Text      string     `json:"text"`
	FireAt    time.Time  `json:"fire_at"`
	Status    string     `json:"status"`
	Attempts  int        `json:"attempts"`
	LastError string     `json:"last_error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}
