package notifications

import "errors"

var (
	// ErrEngineNil is returned when creating the service without an engine.
	ErrEngineNil = errors.New("engine cannot be nil")

	// ErrNoRecipient is returned when a request carries no recipient
	// identity.
	ErrNoRecipient = errors.New("no recipient identity on request")

	// ErrStreamingUnsupported is returned when the client connection
	// cannot carry server-sent events.
	ErrStreamingUnsupported = errors.New("streaming unsupported by connection")
)
