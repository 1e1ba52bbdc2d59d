package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// Status is the lifecycle state of a delivery entry.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Entry is one queued unit of delivery work. Payload carries the resolved
// variables snapshot taken at schedule time so a later template edit does
// not change what an already-scheduled notification says it resolved.
type Entry struct {
	ID            uuid.UUID       `json:"id"`
	TemplateCode  string          `json:"template_code"`
	RecipientID   string          `json:"recipient_id"`
	Channel       notify.Channel  `json:"channel"`
	Priority      notify.Priority `json:"priority"`
	Status        Status          `json:"status"`
	Attempts      int8            `json:"attempts"`
	Retry         RetryPolicy     `json:"retry"`
	ScheduledAt   time.Time       `json:"scheduled_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
	NextRetryAt   *time.Time      `json:"next_retry_at,omitempty"`
	LockedUntil   *time.Time      `json:"locked_until,omitempty"`
	LockedBy      *uuid.UUID      `json:"locked_by,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Error         *string         `json:"error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Due reports whether the entry is claimable at now: pending, scheduled
// time reached, and any retry pause elapsed.
func (e *Entry) Due(now time.Time) bool {
	if e.Status != StatusPending {
		return false
	}
	if e.ScheduledAt.After(now) {
		return false
	}
	if e.NextRetryAt != nil && e.NextRetryAt.After(now) {
		return false
	}
	return true
}

// LeaseExpired reports whether a processing entry's lease has lapsed,
// which happens when the owning worker died mid-flight.
func (e *Entry) LeaseExpired(now time.Time) bool {
	return e.Status == StatusProcessing && e.LockedUntil != nil && e.LockedUntil.Before(now)
}
