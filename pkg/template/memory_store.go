package template

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewMemoryStore creates an empty in-memory template store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		templates: make(map[string]Template),
	}
}

func (s *MemoryStore) Create(ctx context.Context, tmpl Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.templates[tmpl.Code]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyExists, tmpl.Code)
	}

	now := time.Now()
	if tmpl.Version == 0 {
		tmpl.Version = 1
	}
	if tmpl.CreatedAt.IsZero() {
		tmpl.CreatedAt = now
	}
	tmpl.UpdatedAt = now

	s.templates[tmpl.Code] = cloneTemplate(tmpl)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, code string) (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tmpl, ok := s.templates[code]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, code)
	}
	copied := cloneTemplate(tmpl)
	return &copied, nil
}

func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Template, 0, len(s.templates))
	for _, tmpl := range s.templates {
		if !matchesFilter(tmpl, filter) {
			continue
		}
		out = append(out, cloneTemplate(tmpl))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})

	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, tmpl Template) (*Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.templates[tmpl.Code]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, tmpl.Code)
	}

	tmpl.Version = existing.Version + 1
	tmpl.CreatedAt = existing.CreatedAt
	tmpl.UpdatedAt = time.Now()

	s.templates[tmpl.Code] = cloneTemplate(tmpl)
	copied := cloneTemplate(tmpl)
	return &copied, nil
}

func (s *MemoryStore) Delete(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[code]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, code)
	}
	delete(s.templates, code)
	return nil
}

func matchesFilter(tmpl Template, filter Filter) bool {
	if filter.Category != "" && tmpl.Category != filter.Category {
		return false
	}
	if filter.Active != nil && tmpl.IsActive != *filter.Active {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		haystack := strings.ToLower(tmpl.Code + " " + tmpl.Name + " " + tmpl.Description)
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

// cloneTemplate deep-copies the template so stored state cannot be
// mutated through returned values.
func cloneTemplate(t Template) Template {
	out := t
	out.Channels = slices.Clone(t.Channels)
	out.Variables = slices.Clone(t.Variables)
	out.Content = maps.Clone(t.Content)
	return out
}
