package notify

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownChannel is returned when parsing a channel identifier that
	// no sender serves.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrNoRecipientContact is returned by senders when the recipient has
	// no usable contact detail for the channel (no email address, no phone
	// number). This is a permanent condition.
	ErrNoRecipientContact = errors.New("recipient has no contact for channel")
)

// TransientError marks a send failure as retryable: network timeouts,
// rate limits, provider hiccups.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient send failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a send failure as terminal: invalid address,
// blocked recipient, rejected content. The dispatcher never retries it.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent send failure: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable send failure. Returns nil for nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// Permanent wraps err as a terminal send failure. Returns nil for nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is classified as a permanent send
// failure. Unclassified errors are not permanent: retrying an unknown
// failure is the safer default.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
