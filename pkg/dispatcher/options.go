package dispatcher

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/template"
)

// Option is a functional option for configuring a Dispatcher
type Option func(*dispatcherOptions)

type dispatcherOptions struct {
	renderer     *template.Renderer
	pollInterval time.Duration
	lockTimeout  time.Duration
	sendTimeout  time.Duration
	batchSize    int
	concurrency  int
	logger       *slog.Logger
}

// WithRenderer sets the template renderer, typically configured with a
// locale and display currency.
func WithRenderer(r *template.Renderer) Option {
	return func(o *dispatcherOptions) {
		if r != nil {
			o.renderer = r
		}
	}
}

// WithPollInterval sets how often the dispatcher polls for due entries
func WithPollInterval(interval time.Duration) Option {
	return func(o *dispatcherOptions) {
		if interval > 0 {
			o.pollInterval = interval
		}
	}
}

// WithLockTimeout sets the lease duration on claimed entries
func WithLockTimeout(timeout time.Duration) Option {
	return func(o *dispatcherOptions) {
		if timeout > 0 {
			o.lockTimeout = timeout
		}
	}
}

// WithSendTimeout bounds a single sender call
func WithSendTimeout(timeout time.Duration) Option {
	return func(o *dispatcherOptions) {
		if timeout > 0 {
			o.sendTimeout = timeout
		}
	}
}

// WithBatchSize sets how many entries are claimed per poll
func WithBatchSize(size int) Option {
	return func(o *dispatcherOptions) {
		if size > 0 {
			o.batchSize = size
		}
	}
}

// WithConcurrency sets how many deliveries run at once
func WithConcurrency(n int) Option {
	return func(o *dispatcherOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithWorkerLogger sets the logger
func WithWorkerLogger(logger *slog.Logger) Option {
	return func(o *dispatcherOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
