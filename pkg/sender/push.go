package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/fanout"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// PushSender serves the real-time channel. It persists a Notification
// row and forwards it to the fan-out hub; recipients without a live
// connection still find it in their unread list later, so delivery
// succeeds even when nobody is connected.
type PushSender struct {
	storage notification.Storage
	hub     *fanout.Hub
}

// NewPushSender creates a push sender over the given storage and hub.
func NewPushSender(storage notification.Storage, hub *fanout.Hub) (*PushSender, error) {
	if storage == nil {
		return nil, fanout.ErrStorageNil
	}
	if hub == nil {
		return nil, fmt.Errorf("%w: hub is required", ErrInvalidConfig)
	}
	return &PushSender{storage: storage, hub: hub}, nil
}

func (s *PushSender) Channel() notify.Channel {
	return notify.ChannelPush
}

func (s *PushSender) Send(ctx context.Context, rcpt notify.Recipient, content notify.Content) error {
	if rcpt.ID == "" {
		return notify.Permanent(notify.ErrNoRecipientContact)
	}

	notif := notification.Notification{
		ID:          uuid.New(),
		RecipientID: rcpt.ID,
		Type:        notification.TypeInfo,
		Title:       content.Subject,
		Content:     content.Body,
		Priority:    content.Priority,
		Metadata:    content.Metadata,
		CreatedAt:   time.Now(),
	}

	if err := s.storage.Create(ctx, notif); err != nil {
		return notify.Transient(fmt.Errorf("%w: failed to persist notification: %v", ErrSendFailed, err))
	}

	// The row is durable at this point. A fan-out hiccup only delays
	// visibility until the next reconnect; retrying the send would
	// duplicate the row, so the delivery still counts as accepted.
	_ = s.hub.Push(ctx, notif)
	return nil
}
