package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EnqueuerRepository is the write side used by producers.
type EnqueuerRepository interface {
	// CreateEntry persists a new delivery entry in pending status.
	CreateEntry(ctx context.Context, entry Entry) error
	// CancelEntry removes a pending entry. Entries already claimed by a
	// worker cannot be cancelled; ErrEntryNotPending is returned.
	CancelEntry(ctx context.Context, id uuid.UUID) error
}

// WorkerRepository is the claim/settle side used by dispatcher workers.
type WorkerRepository interface {
	// ClaimDue atomically transitions up to limit due pending entries
	// (plus processing entries whose lease has expired) to processing,
	// stamping the lease. Ordering is priority descending, then
	// scheduled time ascending. Each returned entry is owned exclusively
	// by workerID until its lease expires or it is settled.
	ClaimDue(ctx context.Context, workerID uuid.UUID, limit int, lockFor time.Duration) ([]Entry, error)

	// ExtendLease pushes the lease deadline of a processing entry owned
	// by workerID. Returns ErrEntryNotProcessing if the entry was
	// reclaimed or settled.
	ExtendLease(ctx context.Context, id, workerID uuid.UUID, lockFor time.Duration) error

	// MarkSent settles a processing entry as sent.
	MarkSent(ctx context.Context, id uuid.UUID) error

	// Reschedule returns a processing entry to pending with the given
	// error message and next retry time, incrementing attempts.
	Reschedule(ctx context.Context, id uuid.UUID, errMsg string, nextRetryAt time.Time) error

	// MarkFailed settles a processing entry as failed with the given
	// error message, incrementing attempts.
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

// Repository combines both sides for storages that implement everything.
type Repository interface {
	EnqueuerRepository
	WorkerRepository

	// GetEntry returns a single entry by ID.
	GetEntry(ctx context.Context, id uuid.UUID) (Entry, error)

	// PendingCount reports entries still waiting to be delivered.
	PendingCount(ctx context.Context) (int64, error)
}
