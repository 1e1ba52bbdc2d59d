package notification

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage is an in-memory implementation of Storage and
// PreferencesStorage. Suitable for development and testing.
type MemoryStorage struct {
	mu            sync.RWMutex
	notifications map[string][]Notification // recipientID -> notifications
	preferences   map[string]Preferences
}

// NewMemoryStorage creates a new in-memory notification storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		notifications: make(map[string][]Notification),
		preferences:   make(map[string]Preferences),
	}
}

func (s *MemoryStorage) Create(ctx context.Context, notif Notification) error {
	if notif.ID == uuid.Nil {
		return ErrIDEmpty
	}
	if notif.RecipientID == "" {
		return ErrRecipientEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now()
	}
	notif.Metadata = maps.Clone(notif.Metadata)

	s.notifications[notif.RecipientID] = append(s.notifications[notif.RecipientID], notif)
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, recipientID string, id uuid.UUID) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.notifications[recipientID] {
		if n.ID == id {
			notif := n
			notif.Metadata = maps.Clone(n.Metadata)
			return &notif, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) List(ctx context.Context, recipientID string, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []Notification
	for _, n := range s.notifications[recipientID] {
		if opts.OnlyUnread && n.IsRead {
			continue
		}
		if len(opts.Types) > 0 && !slices.Contains(opts.Types, n.Type) {
			continue
		}
		if opts.Since != nil && n.CreatedAt.Before(*opts.Since) {
			continue
		}
		n.Metadata = maps.Clone(n.Metadata)
		filtered = append(filtered, n)
	}

	// Newest first.
	slices.SortStableFunc(filtered, func(a, b Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	start := opts.Offset
	if start > len(filtered) {
		return []Notification{}, nil
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], nil
}

func (s *MemoryStorage) MarkRead(ctx context.Context, recipientID string, ids ...uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notifications := s.notifications[recipientID]
	for i := range notifications {
		if slices.Contains(ids, notifications[i].ID) {
			notifications[i].MarkAsRead()
		}
	}
	return nil
}

func (s *MemoryStorage) MarkAllRead(ctx context.Context, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notifications := s.notifications[recipientID]
	for i := range notifications {
		notifications[i].MarkAsRead()
	}
	return nil
}

func (s *MemoryStorage) Delete(ctx context.Context, recipientID string, ids ...uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications[recipientID] = slices.DeleteFunc(s.notifications[recipientID], func(n Notification) bool {
		return slices.Contains(ids, n.ID)
	})
	return nil
}

func (s *MemoryStorage) CountUnread(ctx context.Context, recipientID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications[recipientID] {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStorage) GetPreferences(ctx context.Context, recipientID string) (Preferences, error) {
	if recipientID == "" {
		return Preferences{}, ErrRecipientEmpty
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	prefs, exists := s.preferences[recipientID]
	if !exists {
		return DefaultPreferences(recipientID), nil
	}
	prefs.Channels = maps.Clone(prefs.Channels)
	return prefs, nil
}

func (s *MemoryStorage) UpdatePreferences(ctx context.Context, prefs Preferences) (Preferences, error) {
	if prefs.RecipientID == "" {
		return Preferences{}, ErrRecipientEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prefs.Channels = maps.Clone(prefs.Channels)
	prefs.UpdatedAt = time.Now()
	s.preferences[prefs.RecipientID] = prefs
	return prefs, nil
}
