package models

import (
	"time"
)

// OutboxStatus represents the lifecycle state of an outbox entry.
type OutboxStatus string

const (
	OutboxStatusQueued   OutboxStatus = "queued"
	OutboxStatusSent     OutboxStatus = "sent"
	OutboxStatusFailed   OutboxStatus = "failed"
	OutboxStatusRetrying OutboxStatus = "retrying"
	OutboxStatusDead     OutboxStatus = "dead"
)

// IsTerminal reports whether the status admits no further automatic transitions.
// Sent entries are done; dead entries exhausted max_attempts and wait for a
// manual reset.
func (s OutboxStatus) IsTerminal() bool {
	return s == OutboxStatusSent || s == OutboxStatusDead
}

// DefaultMaxAttempts is the number of delivery attempts an entry gets before
// it is dead-lettered.
const DefaultMaxAttempts = 5

// OutboxEntry is a durable queue record representing one pending delivery job.
// Rows are created by the dispatcher, mutated by the delivery worker
// (MarkSent/MarkFailed) and the sweep job (re-scheduling only), and deleted by
// the retention job once sent and past the retention window.
type OutboxEntry struct {
	ID          string            `json:"id"`
	RecipientID string            `json:"recipient_id"`
	Channel     Channel           `json:"channel"`
	Provider    ProviderName      `json:"provider"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Payload     map[string]string `json:"payload,omitempty"`
	Status      OutboxStatus      `json:"status"`
	Attempts    int               `json:"attempts"`
	MaxAttempts int               `json:"max_attempts"`
	LastError   string            `json:"last_error,omitempty"`
	ScheduledAt time.Time         `json:"scheduled_at"`
	SentAt      *time.Time        `json:"sent_at,omitempty"`
	RelatedType string            `json:"related_type,omitempty"`
	RelatedID   string            `json:"related_id,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
