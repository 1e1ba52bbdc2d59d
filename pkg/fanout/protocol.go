package fanout

import (
	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Kind tags a server→client message. The set is closed: clients can
// switch exhaustively and tests can exercise the contract without a
// live socket.
type Kind string

const (
	KindNew         Kind = "notification:new"
	KindUnreadCount Kind = "notification:unreadCount"
	KindUnreadList  Kind = "notification:unreadList"
	KindMarked      Kind = "notification:marked"
	KindAllMarked   Kind = "notification:allMarked"
	KindDeleted     Kind = "notification:deleted"
	KindPreferences Kind = "notification:preferences"
	KindError       Kind = "notification:error"
)

// Message is one tagged server→client frame. Payload is one of the
// typed payload structs below, selected by Kind.
type Message struct {
	Kind    Kind `json:"kind"`
	Payload any  `json:"payload,omitempty"`
}

// UnreadCountPayload carries the server-authoritative unread count.
type UnreadCountPayload struct {
	Count int `json:"count"`
}

// UnreadListPayload carries the newest unread notifications. Total may
// exceed len(Notifications) when the list is capped.
type UnreadListPayload struct {
	Notifications []notification.Notification `json:"notifications"`
	Total         int                         `json:"total"`
}

// MarkedPayload acknowledges a single read action.
type MarkedPayload struct {
	ID uuid.UUID `json:"id"`
}

// DeletedPayload acknowledges a delete action.
type DeletedPayload struct {
	ID uuid.UUID `json:"id"`
}

// PreferencesPayload carries the recipient's current preferences.
type PreferencesPayload struct {
	Preferences notification.Preferences `json:"preferences"`
}

// ErrorPayload reports a failed client request.
type ErrorPayload struct {
	Message string `json:"message"`
}

// NewNotificationMessage wraps a freshly created notification.
func NewNotificationMessage(n notification.Notification) Message {
	return Message{Kind: KindNew, Payload: n}
}

// UnreadCountMessage wraps an unread count.
func UnreadCountMessage(count int) Message {
	return Message{Kind: KindUnreadCount, Payload: UnreadCountPayload{Count: count}}
}

// UnreadListMessage wraps an unread list snapshot.
func UnreadListMessage(notifications []notification.Notification, total int) Message {
	return Message{Kind: KindUnreadList, Payload: UnreadListPayload{Notifications: notifications, Total: total}}
}

// MarkedMessage acknowledges a markAsRead request.
func MarkedMessage(id uuid.UUID) Message {
	return Message{Kind: KindMarked, Payload: MarkedPayload{ID: id}}
}

// AllMarkedMessage acknowledges a markAllAsRead request.
func AllMarkedMessage() Message {
	return Message{Kind: KindAllMarked}
}

// DeletedMessage acknowledges a delete request.
func DeletedMessage(id uuid.UUID) Message {
	return Message{Kind: KindDeleted, Payload: DeletedPayload{ID: id}}
}

// PreferencesMessage wraps the recipient's preferences.
func PreferencesMessage(prefs notification.Preferences) Message {
	return Message{Kind: KindPreferences, Payload: PreferencesPayload{Preferences: prefs}}
}

// ErrorMessage wraps a request failure.
func ErrorMessage(msg string) Message {
	return Message{Kind: KindError, Payload: ErrorPayload{Message: msg}}
}
