package notification

import (
	"context"

	"github.com/google/uuid"
)

// Storage handles notification persistence and retrieval. All mutating
// operations are scoped by recipient ID; a recipient can only touch
// their own rows.
type Storage interface {
	// Create stores a new notification.
	Create(ctx context.Context, notif Notification) error

	// Get retrieves a single notification.
	Get(ctx context.Context, recipientID string, id uuid.UUID) (*Notification, error)

	// List returns notifications for a recipient, newest first.
	List(ctx context.Context, recipientID string, opts ListOptions) ([]Notification, error)

	// MarkRead marks the given notifications as read. Unknown IDs and
	// already-read rows are skipped silently.
	MarkRead(ctx context.Context, recipientID string, ids ...uuid.UUID) error

	// MarkAllRead marks every unread notification of the recipient as read.
	MarkAllRead(ctx context.Context, recipientID string) error

	// Delete removes the given notifications.
	Delete(ctx context.Context, recipientID string, ids ...uuid.UUID) error

	// CountUnread returns the recipient's unread count.
	CountUnread(ctx context.Context, recipientID string) (int, error)
}

// PreferencesStorage persists per-recipient channel opt-outs.
type PreferencesStorage interface {
	// GetPreferences returns the recipient's preferences, or the
	// all-enabled defaults when none are stored.
	GetPreferences(ctx context.Context, recipientID string) (Preferences, error)

	// UpdatePreferences replaces the recipient's preferences.
	UpdatePreferences(ctx context.Context, prefs Preferences) (Preferences, error)
}
