package router

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/queue"
)

// Binding maps an (eventType, entityType) pair to a template. When a
// matching event arrives and every condition passes, one delivery entry
// is scheduled per template channel.
type Binding struct {
	ID           uuid.UUID          `json:"id" yaml:"id,omitempty"`
	EventType    string             `json:"event_type" yaml:"event_type"`
	EntityType   string             `json:"entity_type" yaml:"entity_type"`
	TemplateCode string             `json:"template_code" yaml:"template_code"`
	Conditions   []Condition        `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Delay        time.Duration      `json:"delay,omitempty" yaml:"delay,omitempty"`
	Retry        *queue.RetryPolicy `json:"retry,omitempty" yaml:"retry,omitempty"`
	IsActive     bool               `json:"is_active" yaml:"is_active"`
	CreatedAt    time.Time          `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time          `json:"updated_at" yaml:"-"`
}

// Validate checks the binding's structural invariants.
func (b Binding) Validate() error {
	if b.EventType == "" {
		return ErrEventTypeEmpty
	}
	if b.EntityType == "" {
		return ErrEntityTypeEmpty
	}
	if b.TemplateCode == "" {
		return ErrTemplateCodeEmpty
	}
	if b.Delay < 0 {
		return ErrNegativeDelay
	}
	for _, c := range b.Conditions {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Event is one business occurrence handed to the router. Variables must
// carry recipientId; everything else feeds conditions and rendering.
type Event struct {
	EventType  string         `json:"event_type"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Variables  map[string]any `json:"variables"`
}

// RecipientID extracts the target recipient from the event variables.
func (e Event) RecipientID() string {
	if id, ok := e.Variables["recipientId"].(string); ok {
		return id
	}
	return ""
}
