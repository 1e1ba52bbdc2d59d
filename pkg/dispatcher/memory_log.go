package dispatcher

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLogStore is an in-memory LogStore for testing and development.
type MemoryLogStore struct {
	mu      sync.RWMutex
	entries []LogEntry
}

// NewMemoryLogStore creates a new in-memory delivery log.
func NewMemoryLogStore() *MemoryLogStore {
	return &MemoryLogStore{}
}

func (s *MemoryLogStore) Append(ctx context.Context, entry LogEntry) error {
	if entry.ID == uuid.Nil {
		return ErrLogIDEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.AttemptedAt.IsZero() {
		entry.AttemptedAt = time.Now()
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryLogStore) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID == id {
			if s.entries[i].Outcome != OutcomeSent {
				return ErrLogNotSent
			}
			now := time.Now()
			s.entries[i].Outcome = OutcomeDelivered
			s.entries[i].DeliveredAt = &now
			return nil
		}
	}
	return ErrLogNotFound
}

func (s *MemoryLogStore) List(ctx context.Context, filter LogFilter) ([]LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []LogEntry
	for _, e := range s.entries {
		if filter.TemplateCode != "" && e.TemplateCode != filter.TemplateCode {
			continue
		}
		if filter.RecipientID != "" && e.RecipientID != filter.RecipientID {
			continue
		}
		if filter.Channel != "" && e.Channel != filter.Channel {
			continue
		}
		if filter.Outcome != "" && e.Outcome != filter.Outcome {
			continue
		}
		if filter.From != nil && e.AttemptedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.AttemptedAt.After(*filter.To) {
			continue
		}
		out = append(out, e)
	}

	slices.SortStableFunc(out, func(a, b LogEntry) int {
		return b.AttemptedAt.Compare(a.AttemptedAt)
	})
	return out, nil
}
