package notification

import "errors"

var (
	// ErrNotFound is returned when a notification is not found.
	ErrNotFound = errors.New("notification not found")

	// ErrRecipientEmpty is returned when an operation is missing the
	// recipient ID.
	ErrRecipientEmpty = errors.New("recipient ID cannot be empty")

	// ErrIDEmpty is returned when a notification has no ID.
	ErrIDEmpty = errors.New("notification ID cannot be empty")
)
