package fanout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Publisher delivers a protocol message to all live connections of a
// recipient. The in-process Registry implements it directly; the Redis
// bridge wraps it for multi-instance deployments.
type Publisher interface {
	Publish(ctx context.Context, recipientID string, msg Message) error
}

// Hub serves the real-time contract. Unread counts are never maintained
// client-side or cached per connection: every mutation recomputes the
// count from storage and pushes it, so any number of live connections
// converge on the same value.
type Hub struct {
	storage     notification.Storage
	preferences notification.PreferencesStorage
	registry    *Registry
	publisher   Publisher
	log         *slog.Logger
	unreadLimit int
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithLogger sets the logger used for delivery failures.
func WithLogger(log *slog.Logger) HubOption {
	return func(h *Hub) {
		if log != nil {
			h.log = log
		}
	}
}

// WithUnreadLimit caps the unread list pushed to clients.
func WithUnreadLimit(limit int) HubOption {
	return func(h *Hub) {
		if limit > 0 {
			h.unreadLimit = limit
		}
	}
}

// WithPublisher routes outgoing messages through the given publisher
// instead of the local registry, typically the Redis bridge.
func WithPublisher(pub Publisher) HubOption {
	return func(h *Hub) {
		if pub != nil {
			h.publisher = pub
		}
	}
}

// NewHub creates a hub over the given storages and connection registry.
func NewHub(storage notification.Storage, preferences notification.PreferencesStorage, registry *Registry, opts ...HubOption) (*Hub, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if preferences == nil {
		return nil, ErrPreferencesNil
	}
	if registry == nil {
		return nil, ErrRegistryNil
	}

	h := &Hub{
		storage:     storage,
		preferences: preferences,
		registry:    registry,
		log:         slog.Default(),
		unreadLimit: 50,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.publisher == nil {
		h.publisher = registry
	}
	return h, nil
}

// Registry returns the local connection registry, used by transports
// and the Redis bridge.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Connect registers a new connection for the recipient and immediately
// pushes the current unread state, which doubles as the pull-on-reconnect
// path after a dropped connection.
func (h *Hub) Connect(ctx context.Context, recipientID string) (Subscriber, error) {
	if recipientID == "" {
		return nil, notification.ErrRecipientEmpty
	}

	sub := h.registry.Subscribe(ctx, recipientID)
	if err := h.pushUnreadState(ctx, recipientID); err != nil {
		h.log.ErrorContext(ctx, "failed to push initial unread state",
			slog.String("recipient_id", recipientID), slog.Any("error", err))
	}
	return sub, nil
}

// Push broadcasts a freshly persisted notification to the recipient's
// live connections along with the refreshed unread count.
func (h *Hub) Push(ctx context.Context, notif notification.Notification) error {
	if err := h.publisher.Publish(ctx, notif.RecipientID, NewNotificationMessage(notif)); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return h.pushUnreadCount(ctx, notif.RecipientID)
}

// GetUnread pushes the recipient's unread list and count.
func (h *Hub) GetUnread(ctx context.Context, recipientID string) error {
	return h.pushUnreadState(ctx, recipientID)
}

// MarkAsRead marks one notification read and pushes the acknowledgement
// plus the refreshed unread count.
func (h *Hub) MarkAsRead(ctx context.Context, recipientID string, id uuid.UUID) error {
	if err := h.storage.MarkRead(ctx, recipientID, id); err != nil {
		return h.fail(ctx, recipientID, fmt.Errorf("failed to mark notification read: %w", err))
	}
	if err := h.publisher.Publish(ctx, recipientID, MarkedMessage(id)); err != nil {
		return err
	}
	return h.pushUnreadCount(ctx, recipientID)
}

// MarkAllAsRead marks every unread notification read and pushes the
// acknowledgement plus the refreshed unread count.
func (h *Hub) MarkAllAsRead(ctx context.Context, recipientID string) error {
	if err := h.storage.MarkAllRead(ctx, recipientID); err != nil {
		return h.fail(ctx, recipientID, fmt.Errorf("failed to mark all notifications read: %w", err))
	}
	if err := h.publisher.Publish(ctx, recipientID, AllMarkedMessage()); err != nil {
		return err
	}
	return h.pushUnreadCount(ctx, recipientID)
}

// Delete removes one notification and pushes the acknowledgement plus
// the refreshed unread count.
func (h *Hub) Delete(ctx context.Context, recipientID string, id uuid.UUID) error {
	if err := h.storage.Delete(ctx, recipientID, id); err != nil {
		return h.fail(ctx, recipientID, fmt.Errorf("failed to delete notification: %w", err))
	}
	if err := h.publisher.Publish(ctx, recipientID, DeletedMessage(id)); err != nil {
		return err
	}
	return h.pushUnreadCount(ctx, recipientID)
}

// GetPreferences pushes the recipient's current preferences.
func (h *Hub) GetPreferences(ctx context.Context, recipientID string) error {
	prefs, err := h.preferences.GetPreferences(ctx, recipientID)
	if err != nil {
		return h.fail(ctx, recipientID, fmt.Errorf("failed to load preferences: %w", err))
	}
	return h.publisher.Publish(ctx, recipientID, PreferencesMessage(prefs))
}

// UpdatePreferences stores new preferences and pushes the result.
func (h *Hub) UpdatePreferences(ctx context.Context, prefs notification.Preferences) error {
	updated, err := h.preferences.UpdatePreferences(ctx, prefs)
	if err != nil {
		return h.fail(ctx, prefs.RecipientID, fmt.Errorf("failed to update preferences: %w", err))
	}
	return h.publisher.Publish(ctx, prefs.RecipientID, PreferencesMessage(updated))
}

func (h *Hub) pushUnreadState(ctx context.Context, recipientID string) error {
	total, err := h.storage.CountUnread(ctx, recipientID)
	if err != nil {
		return h.fail(ctx, recipientID, fmt.Errorf("failed to count unread notifications: %w", err))
	}

	list, err := h.storage.List(ctx, recipientID, notification.ListOptions{
		OnlyUnread: true,
		Limit:      h.unreadLimit,
	})
	if err != nil {
		return h.fail(ctx, recipientID, fmt.Errorf("failed to list unread notifications: %w", err))
	}

	if err := h.publisher.Publish(ctx, recipientID, UnreadListMessage(list, total)); err != nil {
		return err
	}
	return h.publisher.Publish(ctx, recipientID, UnreadCountMessage(total))
}

func (h *Hub) pushUnreadCount(ctx context.Context, recipientID string) error {
	count, err := h.storage.CountUnread(ctx, recipientID)
	if err != nil {
		return h.fail(ctx, recipientID, fmt.Errorf("failed to count unread notifications: %w", err))
	}
	return h.publisher.Publish(ctx, recipientID, UnreadCountMessage(count))
}

// fail logs the error, notifies the recipient's connections, and returns
// the error to the transport.
func (h *Hub) fail(ctx context.Context, recipientID string, err error) error {
	h.log.ErrorContext(ctx, "real-time request failed",
		slog.String("recipient_id", recipientID), slog.Any("error", err))
	_ = h.publisher.Publish(ctx, recipientID, ErrorMessage(err.Error()))
	return err
}
