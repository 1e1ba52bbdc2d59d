package dispatcher

import "errors"

var (
	// ErrRepositoryNil is returned when a nil queue repository is provided.
	ErrRepositoryNil = errors.New("queue repository cannot be nil")

	// ErrTemplateStoreNil is returned when a nil template store is provided.
	ErrTemplateStoreNil = errors.New("template store cannot be nil")

	// ErrLogStoreNil is returned when a nil log store is provided.
	ErrLogStoreNil = errors.New("log store cannot be nil")

	// ErrDirectoryNil is returned when a nil recipient directory is
	// provided.
	ErrDirectoryNil = errors.New("recipient directory cannot be nil")

	// ErrNoSenders is returned when starting a dispatcher without any
	// channel senders.
	ErrNoSenders = errors.New("no channel senders registered")

	// ErrAlreadyStarted is returned when starting a running dispatcher.
	ErrAlreadyStarted = errors.New("dispatcher already started")

	// ErrNotStarted is returned when stopping a dispatcher that was
	// never started.
	ErrNotStarted = errors.New("dispatcher not started")

	// ErrLogIDEmpty is returned when appending a log entry without an ID.
	ErrLogIDEmpty = errors.New("log entry ID cannot be empty")

	// ErrLogNotFound is returned when a log entry ID is unknown.
	ErrLogNotFound = errors.New("delivery log entry not found")

	// ErrLogNotSent is returned when marking delivered an entry whose
	// outcome is not sent.
	ErrLogNotSent = errors.New("delivery log entry is not sent")
)
