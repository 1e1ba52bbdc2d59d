package router

import "errors"

var (
	// ErrEventTypeEmpty is returned when a binding or event has no event
	// type.
	ErrEventTypeEmpty = errors.New("event type cannot be empty")

	// ErrEntityTypeEmpty is returned when a binding or event has no
	// entity type.
	ErrEntityTypeEmpty = errors.New("entity type cannot be empty")

	// ErrTemplateCodeEmpty is returned when a binding names no template.
	ErrTemplateCodeEmpty = errors.New("template code cannot be empty")

	// ErrNegativeDelay is returned when a binding's delay is negative.
	ErrNegativeDelay = errors.New("delay cannot be negative")

	// ErrConditionFieldEmpty is returned when a condition names no field.
	ErrConditionFieldEmpty = errors.New("condition field cannot be empty")

	// ErrUnknownOperator is returned for operators outside the closed
	// comparator set.
	ErrUnknownOperator = errors.New("unknown condition operator")

	// ErrConditionFieldMissing is returned when evaluating a condition
	// whose field is absent from the event variables.
	ErrConditionFieldMissing = errors.New("condition field missing from event variables")

	// ErrConditionValueInvalid is returned when a condition value cannot
	// be interpreted for its operator.
	ErrConditionValueInvalid = errors.New("invalid condition value")

	// ErrBindingNotFound is returned when a binding ID is unknown.
	ErrBindingNotFound = errors.New("event binding not found")

	// ErrRecipientMissing is returned when an event carries no
	// recipientId variable.
	ErrRecipientMissing = errors.New("event variables carry no recipientId")

	// ErrBindingStoreNil is returned when creating a router without a
	// binding store.
	ErrBindingStoreNil = errors.New("binding store cannot be nil")

	// ErrTemplateStoreNil is returned when creating a router without a
	// template store.
	ErrTemplateStoreNil = errors.New("template store cannot be nil")

	// ErrEnqueuerNil is returned when creating a router without an
	// enqueuer.
	ErrEnqueuerNil = errors.New("enqueuer cannot be nil")
)
