package notifier

import (
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/notifykit/pkg/dispatcher"
	"github.com/dmitrymomot/notifykit/pkg/notify"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

// Option configures the engine.
type Option func(*engineOptions)

type engineOptions struct {
	log            *slog.Logger
	renderer       *template.Renderer
	senders        []notify.Sender
	redisClient    *goredis.Client
	dispatcherOpts []dispatcher.Option
	fanoutBuffer   int
	unreadLimit    int
}

// WithLogger sets the logger shared by the engine's components.
func WithLogger(log *slog.Logger) Option {
	return func(o *engineOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// WithRenderer overrides the default renderer, typically to change the
// rendering locale setup.
func WithRenderer(r *template.Renderer) Option {
	return func(o *engineOptions) {
		if r != nil {
			o.renderer = r
		}
	}
}

// WithSenders registers channel senders. The push sender is always
// present; register email, SMS and instant senders here.
func WithSenders(senders ...notify.Sender) Option {
	return func(o *engineOptions) {
		for _, s := range senders {
			if s != nil {
				o.senders = append(o.senders, s)
			}
		}
	}
}

// WithRedis bridges real-time fan-out across instances through the
// given Redis client. Without it fan-out is process-local.
func WithRedis(client *goredis.Client) Option {
	return func(o *engineOptions) {
		o.redisClient = client
	}
}

// WithConfig applies pipeline tunables, typically loaded from the
// environment.
func WithConfig(cfg Config) Option {
	return func(o *engineOptions) {
		if cfg.PollInterval > 0 {
			o.dispatcherOpts = append(o.dispatcherOpts, dispatcher.WithPollInterval(cfg.PollInterval))
		}
		if cfg.LockTimeout > 0 {
			o.dispatcherOpts = append(o.dispatcherOpts, dispatcher.WithLockTimeout(cfg.LockTimeout))
		}
		if cfg.SendTimeout > 0 {
			o.dispatcherOpts = append(o.dispatcherOpts, dispatcher.WithSendTimeout(cfg.SendTimeout))
		}
		if cfg.BatchSize > 0 {
			o.dispatcherOpts = append(o.dispatcherOpts, dispatcher.WithBatchSize(cfg.BatchSize))
		}
		if cfg.Concurrency > 0 {
			o.dispatcherOpts = append(o.dispatcherOpts, dispatcher.WithConcurrency(cfg.Concurrency))
		}
		if cfg.FanoutBuffer > 0 {
			o.fanoutBuffer = cfg.FanoutBuffer
		}
		if cfg.UnreadLimit > 0 {
			o.unreadLimit = cfg.UnreadLimit
		}
	}
}

// WithDispatcherOptions forwards extra options to the dispatcher.
func WithDispatcherOptions(opts ...dispatcher.Option) Option {
	return func(o *engineOptions) {
		o.dispatcherOpts = append(o.dispatcherOpts, opts...)
	}
}
