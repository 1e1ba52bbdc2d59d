// Package queue implements the durable delivery queue: priority-ordered
// storage of pending deliveries with scheduling, lease-based claiming and
// retry bookkeeping.
//
// One Entry represents "send this template, to this recipient, on this
// channel". Entries move through a strict lifecycle:
//
//	pending → processing → sent
//	                     → pending   (transient failure, attempts left)
//	                     → failed    (permanent failure or attempts exhausted)
//
// The claim step is the single correctness-critical race in the engine:
// storage implementations must transition pending→processing atomically
// per entry so that two workers can never both own the same delivery. The
// in-memory storage does this under one mutex; the Postgres storage uses
// FOR UPDATE SKIP LOCKED.
//
// Claims are leases, not flags. A claimed entry carries LockedUntil; a
// worker crash leaves the lease to expire, after which the entry becomes
// claimable again. Retries are time-based through NextRetryAt, computed
// from the entry's RetryPolicy (exponential backoff with jitter by
// default).
package queue
