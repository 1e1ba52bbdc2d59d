package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/pkg/dispatcher"
	"github.com/dmitrymomot/notifykit/pkg/fanout"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/notify"
	"github.com/dmitrymomot/notifykit/pkg/queue"
	"github.com/dmitrymomot/notifykit/pkg/router"
	"github.com/dmitrymomot/notifykit/pkg/sender"
	"github.com/dmitrymomot/notifykit/pkg/stats"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

// Storages bundles the persistence backends the engine runs on. Use the
// memory implementations for development and the Postgres ones in
// production; they can be mixed.
type Storages struct {
	Templates     template.Store
	Bindings      router.BindingStore
	Queue         queue.Repository
	Log           dispatcher.LogStore
	Notifications notification.Storage
	Preferences   notification.PreferencesStorage
}

func (s Storages) validate() error {
	if s.Templates == nil {
		return ErrTemplateStoreNil
	}
	if s.Bindings == nil {
		return ErrBindingStoreNil
	}
	if s.Queue == nil {
		return ErrQueueRepositoryNil
	}
	if s.Log == nil {
		return ErrLogStoreNil
	}
	if s.Notifications == nil {
		return ErrNotificationStorageNil
	}
	if s.Preferences == nil {
		return ErrPreferencesStorageNil
	}
	return nil
}

// Engine is the facade over the notification pipeline: template and
// binding management, direct and event-driven sends, the delivery
// worker, real-time fan-out and delivery statistics.
type Engine struct {
	storages Storages
	renderer *template.Renderer

	enqueuer   *queue.Enqueuer
	router     *router.Router
	dispatcher *dispatcher.Dispatcher
	hub        *fanout.Hub
	bridge     *fanout.RedisBridge
	collector  *stats.Collector
	log        *slog.Logger
}

// NewEngine wires the pipeline together. The directory resolves
// recipient IDs to contact details at send time. The push sender is
// registered automatically; other channels come from WithSenders.
func NewEngine(storages Storages, directory dispatcher.RecipientDirectory, opts ...Option) (*Engine, error) {
	if err := storages.validate(); err != nil {
		return nil, err
	}
	if directory == nil {
		return nil, ErrDirectoryNil
	}

	options := &engineOptions{
		log:          slog.Default(),
		renderer:     template.NewRenderer(),
		fanoutBuffer: 16,
		unreadLimit:  50,
	}
	for _, opt := range opts {
		opt(options)
	}

	enqueuer, err := queue.NewEnqueuer(storages.Queue)
	if err != nil {
		return nil, err
	}

	eventRouter, err := router.NewRouter(storages.Bindings, storages.Templates, enqueuer,
		router.WithPreferences(storages.Preferences),
		router.WithLogger(options.log),
	)
	if err != nil {
		return nil, err
	}

	registry := fanout.NewRegistry(options.fanoutBuffer)

	hubOpts := []fanout.HubOption{
		fanout.WithLogger(options.log),
		fanout.WithUnreadLimit(options.unreadLimit),
	}

	var bridge *fanout.RedisBridge
	if options.redisClient != nil {
		bridge, err = fanout.NewRedisBridge(options.redisClient, registry,
			fanout.WithBridgeLogger(options.log))
		if err != nil {
			return nil, err
		}
		hubOpts = append(hubOpts, fanout.WithPublisher(bridge))
	}

	hub, err := fanout.NewHub(storages.Notifications, storages.Preferences, registry, hubOpts...)
	if err != nil {
		return nil, err
	}

	dispatcherOpts := append([]dispatcher.Option{
		dispatcher.WithRenderer(options.renderer),
		dispatcher.WithWorkerLogger(options.log),
	}, options.dispatcherOpts...)

	worker, err := dispatcher.NewDispatcher(storages.Queue, storages.Templates, storages.Log, directory, dispatcherOpts...)
	if err != nil {
		return nil, err
	}

	push, err := sender.NewPushSender(storages.Notifications, hub)
	if err != nil {
		return nil, err
	}
	worker.RegisterSender(push)
	for _, s := range options.senders {
		worker.RegisterSender(s)
	}

	collector, err := stats.NewCollector(storages.Log)
	if err != nil {
		return nil, err
	}

	return &Engine{
		storages:   storages,
		renderer:   options.renderer,
		enqueuer:   enqueuer,
		router:     eventRouter,
		dispatcher: worker,
		hub:        hub,
		bridge:     bridge,
		collector:  collector,
		log:        options.log,
	}, nil
}

// Run starts the delivery worker and, when configured, the Redis
// fan-out bridge, and blocks until ctx is cancelled or a component
// fails.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(e.dispatcher.Run(ctx))
	if e.bridge != nil {
		g.Go(func() error {
			return e.bridge.Run(ctx)
		})
	}
	return g.Wait()
}

// Hub exposes the real-time hub for transports (SSE, WebSocket).
func (e *Engine) Hub() *fanout.Hub {
	return e.hub
}

// Connect opens a real-time subscription for the recipient and pushes
// the current unread state.
func (e *Engine) Connect(ctx context.Context, recipientID string) (fanout.Subscriber, error) {
	return e.hub.Connect(ctx, recipientID)
}

// --- Templates ---

// CreateTemplate validates and stores a new template.
func (e *Engine) CreateTemplate(ctx context.Context, tmpl template.Template) error {
	if err := tmpl.Validate(); err != nil {
		return err
	}
	return e.storages.Templates.Create(ctx, tmpl)
}

// UpdateTemplate replaces a stored template, bumping its version.
// System templates reject mutation.
func (e *Engine) UpdateTemplate(ctx context.Context, tmpl template.Template) (*template.Template, error) {
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	existing, err := e.storages.Templates.Get(ctx, tmpl.Code)
	if err != nil {
		return nil, err
	}
	if existing.IsSystem {
		return nil, template.ErrSystemTemplate
	}
	return e.storages.Templates.Update(ctx, tmpl)
}

// DeleteTemplate removes a template. System templates reject deletion.
func (e *Engine) DeleteTemplate(ctx context.Context, code string) error {
	existing, err := e.storages.Templates.Get(ctx, code)
	if err != nil {
		return err
	}
	if existing.IsSystem {
		return template.ErrSystemTemplate
	}
	return e.storages.Templates.Delete(ctx, code)
}

// GetTemplate returns the template for code.
func (e *Engine) GetTemplate(ctx context.Context, code string) (*template.Template, error) {
	return e.storages.Templates.Get(ctx, code)
}

// ListTemplates returns templates matching the filter.
func (e *Engine) ListTemplates(ctx context.Context, filter template.Filter) ([]template.Template, error) {
	return e.storages.Templates.List(ctx, filter)
}

// SeedTemplates loads template definitions from YAML and upserts them
// as system templates, typically at startup.
func (e *Engine) SeedTemplates(ctx context.Context, r io.Reader) error {
	templates, err := template.Load(r)
	if err != nil {
		return err
	}
	return template.Seed(ctx, e.storages.Templates, templates)
}

// PreviewTemplate renders a template for one channel without sending
// anything. Inactive templates can be previewed.
func (e *Engine) PreviewTemplate(ctx context.Context, code string, channel notify.Channel, vars map[string]any) (notify.Content, error) {
	tmpl, err := e.storages.Templates.Get(ctx, code)
	if err != nil {
		return notify.Content{}, err
	}
	return e.renderer.Render(tmpl, channel, vars)
}

// --- Sending ---

// Send schedules an immediate delivery of the template to the recipient
// on every template channel the recipient has not disabled. It returns
// the created queue entries; rendering and the actual sends happen in
// the delivery worker.
func (e *Engine) Send(ctx context.Context, templateCode, recipientID string, vars map[string]any, opts ...queue.EnqueueOption) ([]queue.Entry, error) {
	return e.send(ctx, templateCode, recipientID, nil, vars, opts...)
}

// SendOn is Send restricted to a subset of the template's channels.
// Channels the template does not support are silently ignored.
func (e *Engine) SendOn(ctx context.Context, templateCode, recipientID string, channels []notify.Channel, vars map[string]any, opts ...queue.EnqueueOption) ([]queue.Entry, error) {
	return e.send(ctx, templateCode, recipientID, channels, vars, opts...)
}

func (e *Engine) send(ctx context.Context, templateCode, recipientID string, restrict []notify.Channel, vars map[string]any, opts ...queue.EnqueueOption) ([]queue.Entry, error) {
	tmpl, err := e.storages.Templates.Get(ctx, templateCode)
	if err != nil {
		return nil, err
	}
	if !tmpl.IsActive {
		return nil, template.ErrInactiveTemplate
	}

	prefs, err := e.storages.Preferences.GetPreferences(ctx, recipientID)
	if err != nil {
		e.log.WarnContext(ctx, "failed to load preferences, delivering to all channels",
			slog.String("recipient_id", recipientID), slog.Any("error", err))
		prefs = notification.DefaultPreferences(recipientID)
	}

	enqueueOpts := append([]queue.EnqueueOption{queue.WithPriority(tmpl.Priority)}, opts...)

	var entries []queue.Entry
	for _, channel := range tmpl.Channels {
		if len(restrict) > 0 && !slices.Contains(restrict, channel) {
			continue
		}
		if !prefs.ChannelEnabled(channel) {
			continue
		}
		entry, err := e.enqueuer.Enqueue(ctx, tmpl.Code, recipientID, channel, vars, enqueueOpts...)
		if err != nil {
			return entries, fmt.Errorf("failed to enqueue %q on %s: %w", tmpl.Code, channel, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Schedule is Send with a fixed earliest delivery time.
func (e *Engine) Schedule(ctx context.Context, templateCode, recipientID string, vars map[string]any, at time.Time, opts ...queue.EnqueueOption) ([]queue.Entry, error) {
	return e.Send(ctx, templateCode, recipientID, vars, append(opts, queue.WithScheduledAt(at))...)
}

// SendToMany sends the template to every recipient. Failures are
// collected per recipient; successful recipients are unaffected.
func (e *Engine) SendToMany(ctx context.Context, templateCode string, recipientIDs []string, vars map[string]any, opts ...queue.EnqueueOption) ([]queue.Entry, error) {
	var (
		entries []queue.Entry
		errs    []error
	)
	for _, recipientID := range recipientIDs {
		created, err := e.Send(ctx, templateCode, recipientID, vars, opts...)
		if err != nil {
			errs = append(errs, fmt.Errorf("recipient %q: %w", recipientID, err))
			continue
		}
		entries = append(entries, created...)
	}
	return entries, errors.Join(errs...)
}

// CancelDelivery removes a pending queue entry before it is claimed.
func (e *Engine) CancelDelivery(ctx context.Context, id uuid.UUID) error {
	return e.enqueuer.Cancel(ctx, id)
}

// ConfirmDelivery upgrades a sent log entry to delivered. Channel
// providers report receipts asynchronously; this records them.
func (e *Engine) ConfirmDelivery(ctx context.Context, logID uuid.UUID) error {
	return e.storages.Log.MarkDelivered(ctx, logID)
}

// --- Events ---

// HandleEvent routes a business event through the active bindings and
// returns the deliveries it scheduled.
func (e *Engine) HandleEvent(ctx context.Context, event router.Event) ([]queue.Entry, error) {
	return e.router.HandleEvent(ctx, event)
}

// --- Bindings ---

// CreateBinding validates and stores an event binding. The referenced
// template must exist.
func (e *Engine) CreateBinding(ctx context.Context, binding router.Binding) error {
	if err := binding.Validate(); err != nil {
		return err
	}
	if _, err := e.storages.Templates.Get(ctx, binding.TemplateCode); err != nil {
		return fmt.Errorf("binding references template %q: %w", binding.TemplateCode, err)
	}
	return e.storages.Bindings.Create(ctx, binding)
}

// UpdateBinding replaces a stored binding.
func (e *Engine) UpdateBinding(ctx context.Context, binding router.Binding) (*router.Binding, error) {
	if err := binding.Validate(); err != nil {
		return nil, err
	}
	if _, err := e.storages.Templates.Get(ctx, binding.TemplateCode); err != nil {
		return nil, fmt.Errorf("binding references template %q: %w", binding.TemplateCode, err)
	}
	return e.storages.Bindings.Update(ctx, binding)
}

// DeleteBinding removes a binding.
func (e *Engine) DeleteBinding(ctx context.Context, id uuid.UUID) error {
	return e.storages.Bindings.Delete(ctx, id)
}

// GetBinding returns the binding for id.
func (e *Engine) GetBinding(ctx context.Context, id uuid.UUID) (*router.Binding, error) {
	return e.storages.Bindings.Get(ctx, id)
}

// ListBindings returns all bindings.
func (e *Engine) ListBindings(ctx context.Context) ([]router.Binding, error) {
	return e.storages.Bindings.List(ctx)
}

// --- Inbox ---

// ListNotifications returns the recipient's stored notifications.
func (e *Engine) ListNotifications(ctx context.Context, recipientID string, opts notification.ListOptions) ([]notification.Notification, error) {
	return e.storages.Notifications.List(ctx, recipientID, opts)
}

// CountUnread returns the recipient's unread notification count.
func (e *Engine) CountUnread(ctx context.Context, recipientID string) (int, error) {
	return e.storages.Notifications.CountUnread(ctx, recipientID)
}

// MarkNotificationRead marks one notification read and pushes the new
// unread state to the recipient's live connections.
func (e *Engine) MarkNotificationRead(ctx context.Context, recipientID string, id uuid.UUID) error {
	return e.hub.MarkAsRead(ctx, recipientID, id)
}

// MarkAllNotificationsRead marks every notification read and pushes the
// new unread state to the recipient's live connections.
func (e *Engine) MarkAllNotificationsRead(ctx context.Context, recipientID string) error {
	return e.hub.MarkAllAsRead(ctx, recipientID)
}

// DeleteNotification removes one notification and pushes the new unread
// state to the recipient's live connections.
func (e *Engine) DeleteNotification(ctx context.Context, recipientID string, id uuid.UUID) error {
	return e.hub.Delete(ctx, recipientID, id)
}

// GetPreferences returns the recipient's channel preferences.
func (e *Engine) GetPreferences(ctx context.Context, recipientID string) (notification.Preferences, error) {
	return e.storages.Preferences.GetPreferences(ctx, recipientID)
}

// UpdatePreferences replaces the recipient's channel preferences and
// pushes them to the recipient's live connections.
func (e *Engine) UpdatePreferences(ctx context.Context, prefs notification.Preferences) error {
	return e.hub.UpdatePreferences(ctx, prefs)
}

// --- Statistics ---

// Statistics aggregates the delivery log.
func (e *Engine) Statistics(ctx context.Context, opts ...stats.Option) (stats.Report, error) {
	return e.collector.Collect(ctx, opts...)
}
