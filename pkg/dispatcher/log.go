package dispatcher

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// Outcome is the result of one delivery attempt.
type Outcome string

const (
	OutcomeSent      Outcome = "sent"
	OutcomeFailed    Outcome = "failed"
	OutcomeDelivered Outcome = "delivered"
)

// LogEntry records one delivery attempt. Entries are immutable once
// written, with one exception: channels that support receipts may later
// flip a sent entry to delivered via MarkDelivered. Contact and content
// are captured at send time so the log stays truthful after the
// recipient or template changes.
type LogEntry struct {
	ID           uuid.UUID      `json:"id"`
	EntryID      uuid.UUID      `json:"entry_id"`
	TemplateCode string         `json:"template_code"`
	RecipientID  string         `json:"recipient_id"`
	Contact      string         `json:"contact,omitempty"`
	Channel      notify.Channel `json:"channel"`
	Subject      string         `json:"subject,omitempty"`
	Body         string         `json:"body,omitempty"`
	Outcome      Outcome        `json:"outcome"`
	Error        *string        `json:"error,omitempty"`
	AttemptedAt  time.Time      `json:"attempted_at"`
	DeliveredAt  *time.Time     `json:"delivered_at,omitempty"`
}

// LogFilter narrows queries over the delivery log.
type LogFilter struct {
	TemplateCode string
	RecipientID  string
	Channel      notify.Channel
	Outcome      Outcome
	From         *time.Time
	To           *time.Time
}

// LogStore persists delivery log entries.
type LogStore interface {
	// Append writes a new log entry.
	Append(ctx context.Context, entry LogEntry) error

	// MarkDelivered upgrades a sent entry to delivered, for channels
	// that report receipts.
	MarkDelivered(ctx context.Context, id uuid.UUID) error

	// List returns entries matching the filter, newest first.
	List(ctx context.Context, filter LogFilter) ([]LogEntry, error)
}
