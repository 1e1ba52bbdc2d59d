package queue

import "errors"

var (
	// ErrRepositoryNil is returned when a nil repository is provided.
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrPayloadMarshal is returned when the payload cannot be serialized.
	ErrPayloadMarshal = errors.New("failed to marshal payload")

	// ErrTemplateCodeEmpty is returned when enqueueing without a template.
	ErrTemplateCodeEmpty = errors.New("template code cannot be empty")

	// ErrRecipientEmpty is returned when enqueueing without a recipient.
	ErrRecipientEmpty = errors.New("recipient ID cannot be empty")

	// ErrEntryNotFound is returned when an entry ID is unknown.
	ErrEntryNotFound = errors.New("delivery entry not found")

	// ErrNoEntryToClaim signals an empty due set; workers treat it as a
	// normal idle tick, not a failure.
	ErrNoEntryToClaim = errors.New("no delivery entry to claim")

	// ErrEntryNotPending is returned when cancelling an entry that has
	// already been claimed or resolved. Once claimed, an entry runs to
	// completion.
	ErrEntryNotPending = errors.New("delivery entry is not pending")

	// ErrEntryNotProcessing is returned when completing or failing an
	// entry that is not currently claimed.
	ErrEntryNotProcessing = errors.New("delivery entry is not processing")
)
