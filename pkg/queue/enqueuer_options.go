package queue

import (
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// EnqueuerOption is a functional option for configuring an Enqueuer
type EnqueuerOption func(*enqueuerOptions)

type enqueuerOptions struct {
	defaultPriority notify.Priority
	defaultRetry    RetryPolicy
}

// WithDefaultPriority sets the priority applied when Enqueue is called
// without WithPriority.
func WithDefaultPriority(priority notify.Priority) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if priority.Valid() {
			o.defaultPriority = priority
		}
	}
}

// WithDefaultRetryPolicy sets the retry policy applied when Enqueue is
// called without WithRetryPolicy.
func WithDefaultRetryPolicy(policy RetryPolicy) EnqueuerOption {
	return func(o *enqueuerOptions) {
		o.defaultRetry = policy.Normalize()
	}
}

// EnqueueOption is a functional option for the Enqueue method
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	priority    notify.Priority
	retry       RetryPolicy
	delay       time.Duration
	scheduledAt *time.Time
}

// WithPriority sets the priority for the entry
func WithPriority(priority notify.Priority) EnqueueOption {
	return func(o *enqueueOptions) {
		if priority.Valid() {
			o.priority = priority
		}
	}
}

// WithRetryPolicy overrides the retry policy for the entry
func WithRetryPolicy(policy RetryPolicy) EnqueueOption {
	return func(o *enqueueOptions) {
		o.retry = policy.Normalize()
	}
}

// WithDelay postpones the earliest delivery time by the given duration
func WithDelay(delay time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if delay > 0 {
			o.delay = delay
		}
	}
}

// WithScheduledAt sets a specific earliest delivery time
func WithScheduledAt(scheduledAt time.Time) EnqueueOption {
	return func(o *enqueueOptions) {
		o.scheduledAt = &scheduledAt
	}
}
