package router

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryBindingStore is an in-memory BindingStore. Suitable for
// development and testing.
type MemoryBindingStore struct {
	mu       sync.RWMutex
	bindings map[uuid.UUID]Binding
}

// NewMemoryBindingStore creates a new in-memory binding store.
func NewMemoryBindingStore() *MemoryBindingStore {
	return &MemoryBindingStore{bindings: make(map[uuid.UUID]Binding)}
}

func (s *MemoryBindingStore) Create(ctx context.Context, binding Binding) error {
	if err := binding.Validate(); err != nil {
		return err
	}
	if binding.ID == uuid.Nil {
		binding.ID = uuid.New()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if binding.CreatedAt.IsZero() {
		binding.CreatedAt = now
	}
	binding.UpdatedAt = now
	binding.Conditions = slices.Clone(binding.Conditions)
	s.bindings[binding.ID] = binding
	return nil
}

func (s *MemoryBindingStore) Get(ctx context.Context, id uuid.UUID) (*Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	binding, exists := s.bindings[id]
	if !exists {
		return nil, ErrBindingNotFound
	}
	binding.Conditions = slices.Clone(binding.Conditions)
	return &binding, nil
}

func (s *MemoryBindingStore) List(ctx context.Context) ([]Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Binding, 0, len(s.bindings))
	for _, binding := range s.bindings {
		binding.Conditions = slices.Clone(binding.Conditions)
		result = append(result, binding)
	}
	slices.SortFunc(result, func(a, b Binding) int {
		if cmp := strings.Compare(a.EventType, b.EventType); cmp != 0 {
			return cmp
		}
		return strings.Compare(a.EntityType, b.EntityType)
	})
	return result, nil
}

func (s *MemoryBindingStore) Update(ctx context.Context, binding Binding) (*Binding, error) {
	if err := binding.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.bindings[binding.ID]
	if !exists {
		return nil, ErrBindingNotFound
	}
	binding.CreatedAt = existing.CreatedAt
	binding.UpdatedAt = time.Now()
	binding.Conditions = slices.Clone(binding.Conditions)
	s.bindings[binding.ID] = binding

	updated := binding
	updated.Conditions = slices.Clone(binding.Conditions)
	return &updated, nil
}

func (s *MemoryBindingStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bindings[id]; !exists {
		return ErrBindingNotFound
	}
	delete(s.bindings, id)
	return nil
}

func (s *MemoryBindingStore) FindActive(ctx context.Context, eventType, entityType string) ([]Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Binding
	for _, binding := range s.bindings {
		if !binding.IsActive || binding.EventType != eventType || binding.EntityType != entityType {
			continue
		}
		binding.Conditions = slices.Clone(binding.Conditions)
		result = append(result, binding)
	}
	slices.SortFunc(result, func(a, b Binding) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return result, nil
}
