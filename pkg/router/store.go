package router

import (
	"context"

	"github.com/google/uuid"
)

// BindingStore persists event bindings.
type BindingStore interface {
	// Create stores a new binding. The caller assigns the ID.
	Create(ctx context.Context, binding Binding) error

	// Get returns the binding for id, or ErrBindingNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Binding, error)

	// List returns all bindings ordered by event type, then entity type.
	List(ctx context.Context) ([]Binding, error)

	// Update replaces the stored binding. Returns ErrBindingNotFound
	// when the ID is unknown.
	Update(ctx context.Context, binding Binding) (*Binding, error)

	// Delete removes the binding. Returns ErrBindingNotFound when the
	// ID is unknown.
	Delete(ctx context.Context, id uuid.UUID) error

	// FindActive returns the active bindings for the (eventType,
	// entityType) pair. Inactive bindings are never returned.
	FindActive(ctx context.Context, eventType, entityType string) ([]Binding, error)
}
