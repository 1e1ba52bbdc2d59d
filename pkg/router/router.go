package router

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/queue"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

// Router turns business events into scheduled deliveries. For every
// active binding matching the event it evaluates the conditions,
// resolves the template and enqueues one delivery entry per template
// channel the recipient has not disabled.
//
// Bindings are isolated from each other: a condition error, a missing
// template or a failed enqueue in one binding is logged and skipped
// without affecting the rest.
type Router struct {
	bindings    BindingStore
	templates   template.Store
	enqueuer    *queue.Enqueuer
	preferences notification.PreferencesStorage
	log         *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger used for skipped bindings and enqueue
// failures.
func WithLogger(log *slog.Logger) Option {
	return func(r *Router) {
		if log != nil {
			r.log = log
		}
	}
}

// WithPreferences enables per-recipient channel opt-outs. Without it
// every template channel is delivered.
func WithPreferences(prefs notification.PreferencesStorage) Option {
	return func(r *Router) {
		r.preferences = prefs
	}
}

// NewRouter creates an event router.
func NewRouter(bindings BindingStore, templates template.Store, enqueuer *queue.Enqueuer, opts ...Option) (*Router, error) {
	if bindings == nil {
		return nil, ErrBindingStoreNil
	}
	if templates == nil {
		return nil, ErrTemplateStoreNil
	}
	if enqueuer == nil {
		return nil, ErrEnqueuerNil
	}

	r := &Router{
		bindings:  bindings,
		templates: templates,
		enqueuer:  enqueuer,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// HandleEvent matches the event against the active bindings and returns
// the delivery entries it scheduled. An event matching no binding, or
// whose conditions all fail, returns an empty slice and no error.
//
// The only hard failure is a structurally unusable event (empty event or
// entity type, missing recipientId): those return an error immediately.
// Everything that goes wrong inside a single binding is fail-closed:
// the binding schedules nothing, the reason is logged and the remaining
// bindings still run.
func (r *Router) HandleEvent(ctx context.Context, event Event) ([]queue.Entry, error) {
	if event.EventType == "" {
		return nil, ErrEventTypeEmpty
	}
	if event.EntityType == "" {
		return nil, ErrEntityTypeEmpty
	}
	recipientID := event.RecipientID()
	if recipientID == "" {
		return nil, ErrRecipientMissing
	}

	bindings, err := r.bindings.FindActive(ctx, event.EventType, event.EntityType)
	if err != nil {
		return nil, fmt.Errorf("failed to find bindings for %s/%s: %w", event.EventType, event.EntityType, err)
	}
	if len(bindings) == 0 {
		return nil, nil
	}

	prefs := notification.DefaultPreferences(recipientID)
	if r.preferences != nil {
		loaded, err := r.preferences.GetPreferences(ctx, recipientID)
		if err != nil {
			// Preference lookup failures fall back to the all-enabled
			// defaults rather than silently dropping deliveries.
			r.log.WarnContext(ctx, "failed to load preferences, delivering to all channels",
				slog.String("recipient_id", recipientID), slog.Any("error", err))
		} else {
			prefs = loaded
		}
	}

	entries := make([]queue.Entry, 0, len(bindings))
	for _, binding := range bindings {
		scheduled, ok := r.applyBinding(ctx, binding, event, recipientID, prefs)
		if ok {
			entries = append(entries, scheduled...)
		}
	}
	return entries, nil
}

// applyBinding evaluates one binding against the event and schedules its
// deliveries. Returns ok=false when the binding matched nothing or could
// not be applied.
func (r *Router) applyBinding(ctx context.Context, binding Binding, event Event, recipientID string, prefs notification.Preferences) ([]queue.Entry, bool) {
	log := r.log.With(
		slog.String("binding_id", binding.ID.String()),
		slog.String("event_type", event.EventType),
		slog.String("template_code", binding.TemplateCode),
	)

	for _, condition := range binding.Conditions {
		met, err := condition.Evaluate(event.Variables)
		if err != nil {
			// Unevaluable conditions are treated as not met.
			log.WarnContext(ctx, "condition evaluation failed, skipping binding",
				slog.String("field", condition.Field), slog.Any("error", err))
			return nil, false
		}
		if !met {
			return nil, false
		}
	}

	tmpl, err := r.templates.Get(ctx, binding.TemplateCode)
	if err != nil {
		log.ErrorContext(ctx, "failed to load template, skipping binding", slog.Any("error", err))
		return nil, false
	}
	if !tmpl.IsActive {
		log.WarnContext(ctx, "template is inactive, skipping binding")
		return nil, false
	}

	opts := []queue.EnqueueOption{queue.WithPriority(tmpl.Priority)}
	if binding.Delay > 0 {
		opts = append(opts, queue.WithDelay(binding.Delay))
	}
	if binding.Retry != nil {
		opts = append(opts, queue.WithRetryPolicy(*binding.Retry))
	}

	var entries []queue.Entry
	for _, channel := range tmpl.Channels {
		if !prefs.ChannelEnabled(channel) {
			continue
		}
		entry, err := r.enqueuer.Enqueue(ctx, tmpl.Code, recipientID, channel, event.Variables, opts...)
		if err != nil {
			log.ErrorContext(ctx, "failed to enqueue delivery",
				slog.String("channel", string(channel)), slog.Any("error", err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, len(entries) > 0
}
