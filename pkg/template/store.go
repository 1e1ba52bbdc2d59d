package template

import (
	"context"
)

// Filter narrows List results. Zero value lists everything.
type Filter struct {
	Category string // exact category match
	Active   *bool  // filter by IsActive when set
	Search   string // case-insensitive substring over code, name, description
}

// Store persists template definitions.
//
// Update bumps Version and UpdatedAt atomically so versions are
// monotonically increasing regardless of the backing store. System-flag
// protection is a policy concern and lives in the engine, not here.
type Store interface {
	// Create stores a new template. Returns ErrAlreadyExists when the code is taken.
	Create(ctx context.Context, tmpl Template) error

	// Get returns the template for code, or ErrNotFound.
	Get(ctx context.Context, code string) (*Template, error)

	// List returns templates matching the filter, ordered by category then name.
	List(ctx context.Context, filter Filter) ([]Template, error)

	// Update replaces the stored definition, incrementing Version.
	// Returns ErrNotFound when the code is unknown.
	Update(ctx context.Context, tmpl Template) (*Template, error)

	// Delete removes the template. Returns ErrNotFound when the code is unknown.
	Delete(ctx context.Context, code string) error
}
