package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// Enqueuer creates delivery entries.
type Enqueuer struct {
	repo            EnqueuerRepository
	defaultPriority notify.Priority
	defaultRetry    RetryPolicy
}

// NewEnqueuer creates a new Enqueuer.
func NewEnqueuer(repo EnqueuerRepository, opts ...EnqueuerOption) (*Enqueuer, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &enqueuerOptions{
		defaultPriority: notify.PriorityDefault,
		defaultRetry:    DefaultRetryPolicy(),
	}

	for _, opt := range opts {
		opt(options)
	}

	return &Enqueuer{
		repo:            repo,
		defaultPriority: options.defaultPriority,
		defaultRetry:    options.defaultRetry,
	}, nil
}

// Enqueue stores a delivery entry for the given template, recipient and
// channel. The payload carries the rendering variables and is marshaled
// to JSON. The returned entry reflects what was persisted.
func (e *Enqueuer) Enqueue(ctx context.Context, templateCode, recipientID string, channel notify.Channel, payload any, opts ...EnqueueOption) (Entry, error) {
	if templateCode == "" {
		return Entry{}, ErrTemplateCodeEmpty
	}
	if recipientID == "" {
		return Entry{}, ErrRecipientEmpty
	}
	if !channel.Valid() {
		return Entry{}, notify.ErrUnknownChannel
	}

	options := &enqueueOptions{
		priority: e.defaultPriority,
		retry:    e.defaultRetry,
	}
	for _, opt := range opts {
		opt(options)
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrPayloadMarshal, err)
	}

	scheduledAt := time.Now()
	if options.scheduledAt != nil {
		scheduledAt = *options.scheduledAt
	} else if options.delay > 0 {
		scheduledAt = scheduledAt.Add(options.delay)
	}

	entry := Entry{
		ID:           uuid.New(),
		TemplateCode: templateCode,
		RecipientID:  recipientID,
		Channel:      channel,
		Priority:     options.priority,
		Status:       StatusPending,
		Retry:        options.retry.Normalize(),
		ScheduledAt:  scheduledAt,
		Payload:      payloadBytes,
		CreatedAt:    time.Now(),
	}

	if err := e.repo.CreateEntry(ctx, entry); err != nil {
		return Entry{}, fmt.Errorf("failed to enqueue %q for recipient %q: %w", templateCode, recipientID, err)
	}

	return entry, nil
}

// Cancel removes a pending entry before it is claimed.
func (e *Enqueuer) Cancel(ctx context.Context, id uuid.UUID) error {
	return e.repo.CancelEntry(ctx, id)
}
