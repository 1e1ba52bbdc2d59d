package template

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// VariableType constrains how a schema variable is interpreted by helpers.
type VariableType string

const (
	VariableString VariableType = "string"
	VariableNumber VariableType = "number"
	VariableDate   VariableType = "date"
	VariableBool   VariableType = "bool"
)

// Variable declares one entry of a template's variable schema.
type Variable struct {
	Name     string       `json:"name" yaml:"name"`
	Type     VariableType `json:"type,omitempty" yaml:"type,omitempty"`
	Required bool         `json:"required,omitempty" yaml:"required,omitempty"`
	Default  string       `json:"default,omitempty" yaml:"default,omitempty"`
}

// Content is the per-channel content of a template before rendering.
// Subject is optional; channels like SMS ignore it.
type Content struct {
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Body    string `json:"body" yaml:"body"`
}

// Template is a named, versioned content definition. Code is the stable
// key used by event bindings and API callers; Version increases on every
// update. System templates are seeded by the engine and reject mutation
// and deletion.
type Template struct {
	Code        string                     `json:"code" yaml:"code"`
	Name        string                     `json:"name" yaml:"name"`
	Description string                     `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string                     `json:"category" yaml:"category"`
	Priority    notify.Priority            `json:"priority" yaml:"-"`
	Channels    []notify.Channel           `json:"channels" yaml:"channels"`
	Variables   []Variable                 `json:"variables" yaml:"variables"`
	Content     map[notify.Channel]Content `json:"content" yaml:"content"`
	Version     int                        `json:"version" yaml:"-"`
	IsActive    bool                       `json:"is_active" yaml:"active"`
	IsSystem    bool                       `json:"is_system" yaml:"system"`
	CreatedAt   time.Time                  `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time                  `json:"updated_at" yaml:"-"`
}

// SupportsChannel reports whether the template declares ch.
func (t *Template) SupportsChannel(ch notify.Channel) bool {
	for _, c := range t.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// Variable returns the schema entry for name, if declared.
func (t *Template) Variable(name string) (Variable, bool) {
	for _, v := range t.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// Validate checks the template definition: a stable code, at least one
// valid channel, content present for every declared channel, and every
// placeholder in every content string resolvable against the variable
// schema and the closed helper set.
func (t *Template) Validate() error {
	if t.Code == "" {
		return &SchemaError{Code: t.Code, Reason: "code is required"}
	}
	if len(t.Channels) == 0 {
		return &SchemaError{Code: t.Code, Reason: "at least one channel is required"}
	}
	if !t.Priority.Valid() {
		return &SchemaError{Code: t.Code, Reason: fmt.Sprintf("invalid priority %d", t.Priority)}
	}

	seen := make(map[notify.Channel]struct{}, len(t.Channels))
	for _, ch := range t.Channels {
		if !ch.Valid() {
			return &SchemaError{Code: t.Code, Reason: fmt.Sprintf("unknown channel %q", ch)}
		}
		if _, dup := seen[ch]; dup {
			return &SchemaError{Code: t.Code, Reason: fmt.Sprintf("duplicate channel %q", ch)}
		}
		seen[ch] = struct{}{}

		content, ok := t.Content[ch]
		if !ok || content.Body == "" {
			return &SchemaError{Code: t.Code, Reason: fmt.Sprintf("channel %q declared without content", ch)}
		}

		if err := t.checkPlaceholders(content.Subject); err != nil {
			return err
		}
		if err := t.checkPlaceholders(content.Body); err != nil {
			return err
		}
	}

	names := make(map[string]struct{}, len(t.Variables))
	for _, v := range t.Variables {
		if v.Name == "" {
			return &SchemaError{Code: t.Code, Reason: "variable with empty name"}
		}
		if _, dup := names[v.Name]; dup {
			return &SchemaError{Code: t.Code, Reason: fmt.Sprintf("duplicate variable %q", v.Name)}
		}
		names[v.Name] = struct{}{}
	}

	return nil
}

func (t *Template) checkPlaceholders(content string) error {
	refs, err := parsePlaceholders(content)
	if err != nil {
		return &SchemaError{Code: t.Code, Reason: err.Error()}
	}
	for _, ref := range refs {
		if ref.Helper != "" {
			if _, ok := helpers[ref.Helper]; !ok {
				return &SchemaError{Code: t.Code, Reason: fmt.Sprintf("unknown helper %q", ref.Helper)}
			}
		}
		if _, ok := t.Variable(ref.Variable); !ok {
			return &SchemaError{Code: t.Code, Reason: fmt.Sprintf("content references undeclared variable %q", ref.Variable)}
		}
	}
	return nil
}
