package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements Repository for testing and local development.
// A single mutex guards all state, which keeps the claim transition
// atomic without any index bookkeeping.
type MemoryStorage struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*Entry

	lockTicker *time.Ticker
	done       chan struct{}
	closeOnce  sync.Once
}

// NewMemoryStorage creates a new in-memory storage implementation.
func NewMemoryStorage() *MemoryStorage {
	ms := &MemoryStorage{
		entries: make(map[uuid.UUID]*Entry),
		done:    make(chan struct{}),
	}

	// Recover entries whose worker died mid-flight.
	ms.lockTicker = time.NewTicker(time.Second)
	go ms.lockExpirationManager()

	return ms
}

// Close stops the background lock expiration goroutine.
func (ms *MemoryStorage) Close() error {
	ms.closeOnce.Do(func() {
		close(ms.done)
		ms.lockTicker.Stop()
	})
	return nil
}

// CreateEntry implements EnqueuerRepository.
func (ms *MemoryStorage) CreateEntry(ctx context.Context, entry Entry) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.entries[entry.ID]; exists {
		return fmt.Errorf("delivery entry %s already exists", entry.ID)
	}

	ms.entries[entry.ID] = &entry
	return nil
}

// CancelEntry implements EnqueuerRepository.
func (ms *MemoryStorage) CancelEntry(ctx context.Context, id uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, exists := ms.entries[id]
	if !exists {
		return ErrEntryNotFound
	}
	if entry.Status != StatusPending {
		return ErrEntryNotPending
	}

	delete(ms.entries, id)
	return nil
}

// GetEntry implements Repository.
func (ms *MemoryStorage) GetEntry(ctx context.Context, id uuid.UUID) (Entry, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, exists := ms.entries[id]
	if !exists {
		return Entry{}, ErrEntryNotFound
	}
	return *entry, nil
}

// PendingCount implements Repository.
func (ms *MemoryStorage) PendingCount(ctx context.Context) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var n int64
	for _, entry := range ms.entries {
		if entry.Status == StatusPending {
			n++
		}
	}
	return n, nil
}

// ClaimDue implements WorkerRepository. Due entries are ordered by
// priority descending, then scheduled time ascending, and the selected
// batch moves to processing under a single lock so racing workers can
// never claim the same entry twice.
func (ms *MemoryStorage) ClaimDue(ctx context.Context, workerID uuid.UUID, limit int, lockFor time.Duration) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()

	var due []*Entry
	for _, entry := range ms.entries {
		if entry.Due(now) || entry.LeaseExpired(now) {
			due = append(due, entry)
		}
	}
	if len(due) == 0 {
		return nil, ErrNoEntryToClaim
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].Priority != due[j].Priority {
			return due[i].Priority > due[j].Priority
		}
		return due[i].ScheduledAt.Before(due[j].ScheduledAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}

	lockUntil := now.Add(lockFor)
	claimed := make([]Entry, 0, len(due))
	for _, entry := range due {
		entry.Status = StatusProcessing
		entry.LockedUntil = &lockUntil
		entry.LockedBy = &workerID
		claimed = append(claimed, *entry)
	}

	return claimed, nil
}

// ExtendLease implements WorkerRepository.
func (ms *MemoryStorage) ExtendLease(ctx context.Context, id, workerID uuid.UUID, lockFor time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, exists := ms.entries[id]
	if !exists {
		return ErrEntryNotFound
	}
	if entry.Status != StatusProcessing || entry.LockedBy == nil || *entry.LockedBy != workerID {
		return ErrEntryNotProcessing
	}

	lockUntil := time.Now().Add(lockFor)
	entry.LockedUntil = &lockUntil
	return nil
}

// MarkSent implements WorkerRepository.
func (ms *MemoryStorage) MarkSent(ctx context.Context, id uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, exists := ms.entries[id]
	if !exists {
		return ErrEntryNotFound
	}
	if entry.Status != StatusProcessing {
		return ErrEntryNotProcessing
	}

	now := time.Now()
	entry.Status = StatusSent
	entry.Attempts++
	entry.LastAttemptAt = &now
	entry.NextRetryAt = nil
	entry.LockedUntil = nil
	entry.LockedBy = nil
	entry.Error = nil
	return nil
}

// Reschedule implements WorkerRepository.
func (ms *MemoryStorage) Reschedule(ctx context.Context, id uuid.UUID, errMsg string, nextRetryAt time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, exists := ms.entries[id]
	if !exists {
		return ErrEntryNotFound
	}
	if entry.Status != StatusProcessing {
		return ErrEntryNotProcessing
	}

	now := time.Now()
	entry.Status = StatusPending
	entry.Attempts++
	entry.LastAttemptAt = &now
	entry.NextRetryAt = &nextRetryAt
	entry.LockedUntil = nil
	entry.LockedBy = nil
	entry.Error = &errMsg
	return nil
}

// MarkFailed implements WorkerRepository.
func (ms *MemoryStorage) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, exists := ms.entries[id]
	if !exists {
		return ErrEntryNotFound
	}
	if entry.Status != StatusProcessing {
		return ErrEntryNotProcessing
	}

	now := time.Now()
	entry.Status = StatusFailed
	entry.Attempts++
	entry.LastAttemptAt = &now
	entry.NextRetryAt = nil
	entry.LockedUntil = nil
	entry.LockedBy = nil
	entry.Error = &errMsg
	return nil
}

// lockExpirationManager recovers entries from dead workers. Without it,
// an entry claimed by a crashed worker would stay processing forever.
func (ms *MemoryStorage) lockExpirationManager() {
	for {
		select {
		case <-ms.lockTicker.C:
			ms.expireLocks()
		case <-ms.done:
			return
		}
	}
}

func (ms *MemoryStorage) expireLocks() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	for _, entry := range ms.entries {
		if entry.LeaseExpired(now) {
			entry.Status = StatusPending
			entry.LockedUntil = nil
			entry.LockedBy = nil
		}
	}
}
