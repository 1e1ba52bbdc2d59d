package fanout

import "errors"

var (
	// ErrStorageNil is returned when creating a hub without notification
	// storage.
	ErrStorageNil = errors.New("notification storage cannot be nil")

	// ErrPreferencesNil is returned when creating a hub without a
	// preferences storage.
	ErrPreferencesNil = errors.New("preferences storage cannot be nil")

	// ErrRegistryNil is returned when creating a hub without a registry.
	ErrRegistryNil = errors.New("registry cannot be nil")

	// ErrRedisNil is returned when creating a bridge without a Redis
	// client.
	ErrRedisNil = errors.New("redis client cannot be nil")
)
