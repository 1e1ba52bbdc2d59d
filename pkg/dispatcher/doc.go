// Package dispatcher drains the delivery queue and turns entries into
// channel sends.
//
// A Dispatcher runs a bounded worker pool. Each poll claims a batch of
// due entries (priority first), renders each entry's template with its
// stored payload, resolves the recipient through the host-provided
// RecipientDirectory, and calls the registered channel sender under a
// per-send timeout.
//
// Outcomes settle the entry: a successful send marks it sent; a
// transient failure re-arms it to pending with the retry policy's next
// backoff pause, until attempts run out; a permanent failure or an
// exhausted policy marks it failed for good. Every attempt, successful
// or not, appends an immutable record to the delivery log, which is the
// source of truth for statistics.
//
// Delivery failures never propagate to whoever enqueued the entry.
package dispatcher
