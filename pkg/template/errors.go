package template

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no template exists for a code.
	ErrNotFound = errors.New("template not found")

	// ErrAlreadyExists is returned when creating a template whose code is taken.
	ErrAlreadyExists = errors.New("template already exists")

	// ErrSystemTemplate is returned when mutating or deleting a system-flagged template.
	ErrSystemTemplate = errors.New("system templates cannot be modified")

	// ErrInactiveTemplate is returned when sending through a deactivated template.
	ErrInactiveTemplate = errors.New("template is not active")

	// ErrChannelNotSupported is returned when rendering a channel the template does not declare.
	ErrChannelNotSupported = errors.New("channel not supported by template")
)

// SchemaError describes a template definition that fails validation:
// content referencing variables absent from the schema, a declared channel
// without content, or an unknown helper. It is raised at write time so a
// broken template never reaches the queue.
type SchemaError struct {
	Code   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("template %q schema error: %s", e.Code, e.Reason)
}

// MissingVariableError is returned by Render when a required variable
// without a default is absent from the variable bag.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("missing required variable %q", e.Name)
}

// RenderError is returned when content references an unknown helper or a
// helper rejects its argument.
type RenderError struct {
	Expr string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("cannot render %q: %v", e.Expr, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
