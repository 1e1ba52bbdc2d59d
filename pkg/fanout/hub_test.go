package fanout_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/fanout"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/notify"
)

func newHub(t *testing.T) (*fanout.Hub, *notification.MemoryStorage) {
	t.Helper()

	storage := notification.NewMemoryStorage()
	registry := fanout.NewRegistry(32)
	t.Cleanup(func() { _ = registry.Close() })

	hub, err := fanout.NewHub(storage, storage, registry)
	require.NoError(t, err)
	return hub, storage
}

func storedNotification(t *testing.T, storage *notification.MemoryStorage, recipientID string) notification.Notification {
	t.Helper()
	n := notification.Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Type:        notification.TypeInfo,
		Title:       "Quote accepted",
		Content:     "Your quote was accepted.",
		Priority:    notify.PriorityNormal,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, storage.Create(context.Background(), n))
	return n
}

// drainUntil reads messages until one of the given kind arrives,
// returning it. Fails the test if it never shows up.
func drainUntil(t *testing.T, sub fanout.Subscriber, kind fanout.Kind) fanout.Message {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case msg, ok := <-sub.Receive():
			require.True(t, ok, "subscriber channel closed")
			if msg.Kind == kind {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func TestNewHub(t *testing.T) {
	t.Parallel()

	storage := notification.NewMemoryStorage()
	registry := fanout.NewRegistry(8)
	t.Cleanup(func() { _ = registry.Close() })

	_, err := fanout.NewHub(nil, storage, registry)
	assert.ErrorIs(t, err, fanout.ErrStorageNil)

	_, err = fanout.NewHub(storage, nil, registry)
	assert.ErrorIs(t, err, fanout.ErrPreferencesNil)

	_, err = fanout.NewHub(storage, storage, nil)
	assert.ErrorIs(t, err, fanout.ErrRegistryNil)
}

func TestHubConnect(t *testing.T) {
	t.Parallel()

	t.Run("pushes current unread state on connect", func(t *testing.T) {
		t.Parallel()

		hub, storage := newHub(t)
		ctx := context.Background()
		storedNotification(t, storage, "user-1")
		storedNotification(t, storage, "user-1")

		sub, err := hub.Connect(ctx, "user-1")
		require.NoError(t, err)

		list := drainUntil(t, sub, fanout.KindUnreadList)
		payload, ok := list.Payload.(fanout.UnreadListPayload)
		require.True(t, ok)
		assert.Len(t, payload.Notifications, 2)
		assert.Equal(t, 2, payload.Total)

		count := drainUntil(t, sub, fanout.KindUnreadCount)
		assert.Equal(t, fanout.UnreadCountPayload{Count: 2}, count.Payload)
	})

	t.Run("unread list is capped but total is not", func(t *testing.T) {
		t.Parallel()

		storage := notification.NewMemoryStorage()
		registry := fanout.NewRegistry(32)
		t.Cleanup(func() { _ = registry.Close() })
		hub, err := fanout.NewHub(storage, storage, registry, fanout.WithUnreadLimit(3))
		require.NoError(t, err)

		ctx := context.Background()
		for range 5 {
			storedNotification(t, storage, "user-1")
		}

		sub, err := hub.Connect(ctx, "user-1")
		require.NoError(t, err)

		list := drainUntil(t, sub, fanout.KindUnreadList)
		payload := list.Payload.(fanout.UnreadListPayload)
		assert.Len(t, payload.Notifications, 3)
		assert.Equal(t, 5, payload.Total)
	})

	t.Run("empty recipient", func(t *testing.T) {
		t.Parallel()

		hub, _ := newHub(t)
		_, err := hub.Connect(context.Background(), "")
		assert.ErrorIs(t, err, notification.ErrRecipientEmpty)
	})
}

func TestHubPush(t *testing.T) {
	t.Parallel()

	hub, storage := newHub(t)
	ctx := context.Background()

	sub, err := hub.Connect(ctx, "user-1")
	require.NoError(t, err)
	drainUntil(t, sub, fanout.KindUnreadCount)

	n := storedNotification(t, storage, "user-1")
	require.NoError(t, hub.Push(ctx, n))

	msg := drainUntil(t, sub, fanout.KindNew)
	pushed, ok := msg.Payload.(notification.Notification)
	require.True(t, ok)
	assert.Equal(t, n.ID, pushed.ID)

	count := drainUntil(t, sub, fanout.KindUnreadCount)
	assert.Equal(t, fanout.UnreadCountPayload{Count: 1}, count.Payload)
}

func TestHubReadActions(t *testing.T) {
	t.Parallel()

	t.Run("mark as read", func(t *testing.T) {
		t.Parallel()

		hub, storage := newHub(t)
		ctx := context.Background()
		n := storedNotification(t, storage, "user-1")
		storedNotification(t, storage, "user-1")

		sub, err := hub.Connect(ctx, "user-1")
		require.NoError(t, err)
		drainUntil(t, sub, fanout.KindUnreadCount)

		require.NoError(t, hub.MarkAsRead(ctx, "user-1", n.ID))

		marked := drainUntil(t, sub, fanout.KindMarked)
		assert.Equal(t, fanout.MarkedPayload{ID: n.ID}, marked.Payload)

		count := drainUntil(t, sub, fanout.KindUnreadCount)
		assert.Equal(t, fanout.UnreadCountPayload{Count: 1}, count.Payload)
	})

	t.Run("mark all as read converges every connection to zero", func(t *testing.T) {
		t.Parallel()

		hub, storage := newHub(t)
		ctx := context.Background()
		for range 4 {
			storedNotification(t, storage, "user-1")
		}

		// The recipient has several live connections; all must observe
		// the same authoritative count.
		var subs []fanout.Subscriber
		for range 3 {
			sub, err := hub.Connect(ctx, "user-1")
			require.NoError(t, err)
			drainUntil(t, sub, fanout.KindUnreadCount)
			subs = append(subs, sub)
		}

		require.NoError(t, hub.MarkAllAsRead(ctx, "user-1"))

		for _, sub := range subs {
			drainUntil(t, sub, fanout.KindAllMarked)
			count := drainUntil(t, sub, fanout.KindUnreadCount)
			assert.Equal(t, fanout.UnreadCountPayload{Count: 0}, count.Payload)
		}

		got, err := storage.CountUnread(ctx, "user-1")
		require.NoError(t, err)
		assert.Zero(t, got)
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()

		hub, storage := newHub(t)
		ctx := context.Background()
		n := storedNotification(t, storage, "user-1")

		sub, err := hub.Connect(ctx, "user-1")
		require.NoError(t, err)
		drainUntil(t, sub, fanout.KindUnreadCount)

		require.NoError(t, hub.Delete(ctx, "user-1", n.ID))

		deleted := drainUntil(t, sub, fanout.KindDeleted)
		assert.Equal(t, fanout.DeletedPayload{ID: n.ID}, deleted.Payload)

		count := drainUntil(t, sub, fanout.KindUnreadCount)
		assert.Equal(t, fanout.UnreadCountPayload{Count: 0}, count.Payload)
	})
}

func TestHubPreferences(t *testing.T) {
	t.Parallel()

	hub, _ := newHub(t)
	ctx := context.Background()

	sub, err := hub.Connect(ctx, "user-1")
	require.NoError(t, err)
	drainUntil(t, sub, fanout.KindUnreadCount)

	require.NoError(t, hub.UpdatePreferences(ctx, notification.Preferences{
		RecipientID: "user-1",
		Channels:    map[notify.Channel]bool{notify.ChannelSMS: false},
	}))

	msg := drainUntil(t, sub, fanout.KindPreferences)
	payload, ok := msg.Payload.(fanout.PreferencesPayload)
	require.True(t, ok)
	assert.False(t, payload.Preferences.ChannelEnabled(notify.ChannelSMS))

	require.NoError(t, hub.GetPreferences(ctx, "user-1"))
	msg = drainUntil(t, sub, fanout.KindPreferences)
	payload = msg.Payload.(fanout.PreferencesPayload)
	assert.False(t, payload.Preferences.ChannelEnabled(notify.ChannelSMS))
	assert.True(t, payload.Preferences.ChannelEnabled(notify.ChannelEmail))
}
