package sender

import "errors"

var (
	// ErrInvalidConfig is returned when a sender is constructed with
	// incomplete configuration.
	ErrInvalidConfig = errors.New("invalid sender config")

	// ErrSendFailed wraps transport-level send failures.
	ErrSendFailed = errors.New("failed to send")
)
