package notifications

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/notifier"
)

// RecipientResolver extracts the authenticated recipient ID from a
// request. The default reads the X-Recipient-ID header; production
// deployments replace it with a session- or token-based resolver.
type RecipientResolver func(r *http.Request) (string, error)

func headerResolver(r *http.Request) (string, error) {
	id := r.Header.Get("X-Recipient-ID")
	if id == "" {
		return "", ErrNoRecipient
	}
	return id, nil
}

// Service exposes the notification engine over HTTP: template and
// binding management, sends, events, the recipient inbox and an SSE
// stream for real-time updates.
type Service struct {
	engine  *notifier.Engine
	resolve RecipientResolver
	log     *slog.Logger
}

// Option configures the service.
type Option func(*Service)

// WithLogger sets the request logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithRecipientResolver replaces the default header-based recipient
// resolution.
func WithRecipientResolver(resolve RecipientResolver) Option {
	return func(s *Service) {
		if resolve != nil {
			s.resolve = resolve
		}
	}
}

// NewService creates the HTTP service over the given engine.
func NewService(engine *notifier.Engine, opts ...Option) (*Service, error) {
	if engine == nil {
		return nil, ErrEngineNil
	}
	s := &Service{
		engine:  engine,
		resolve: headerResolver,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handle returns the module router, ready to mount:
//
//	r.Mount("/notifications", svc.Handle())
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Route("/templates", func(r chi.Router) {
		r.Get("/", s.listTemplates)
		r.Post("/", s.createTemplate)
		r.Get("/{code}", s.getTemplate)
		r.Put("/{code}", s.updateTemplate)
		r.Delete("/{code}", s.deleteTemplate)
		r.Post("/{code}/preview", s.previewTemplate)
	})

	r.Route("/bindings", func(r chi.Router) {
		r.Get("/", s.listBindings)
		r.Post("/", s.createBinding)
		r.Get("/{id}", s.getBinding)
		r.Put("/{id}", s.updateBinding)
		r.Delete("/{id}", s.deleteBinding)
	})

	r.Post("/send", s.send)
	r.Post("/events", s.handleEvent)
	r.Post("/deliveries/{id}/confirm", s.confirmDelivery)
	r.Get("/stats", s.statistics)

	r.Route("/inbox", func(r chi.Router) {
		r.Get("/", s.listInbox)
		r.Get("/stream", s.stream)
		r.Post("/read-all", s.markAllRead)
		r.Post("/{id}/read", s.markRead)
		r.Delete("/{id}", s.deleteNotification)
	})

	r.Get("/preferences", s.getPreferences)
	r.Put("/preferences", s.updatePreferences)

	return r
}
