package notifier

import "errors"

var (
	// ErrTemplateStoreNil is returned when the engine is created without
	// a template store.
	ErrTemplateStoreNil = errors.New("template store cannot be nil")

	// ErrBindingStoreNil is returned when the engine is created without
	// a binding store.
	ErrBindingStoreNil = errors.New("binding store cannot be nil")

	// ErrQueueRepositoryNil is returned when the engine is created
	// without a queue repository.
	ErrQueueRepositoryNil = errors.New("queue repository cannot be nil")

	// ErrLogStoreNil is returned when the engine is created without a
	// delivery log store.
	ErrLogStoreNil = errors.New("delivery log store cannot be nil")

	// ErrNotificationStorageNil is returned when the engine is created
	// without a notification storage.
	ErrNotificationStorageNil = errors.New("notification storage cannot be nil")

	// ErrPreferencesStorageNil is returned when the engine is created
	// without a preferences storage.
	ErrPreferencesStorageNil = errors.New("preferences storage cannot be nil")

	// ErrDirectoryNil is returned when the engine is created without a
	// recipient directory.
	ErrDirectoryNil = errors.New("recipient directory cannot be nil")
)
