package fanout_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/fanout"
)

func receiveMessage(t *testing.T, sub fanout.Subscriber) fanout.Message {
	t.Helper()
	select {
	case msg, ok := <-sub.Receive():
		require.True(t, ok, "subscriber channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return fanout.Message{}
	}
}

func TestRegistryPublish(t *testing.T) {
	t.Parallel()

	t.Run("delivers to all connections of the recipient", func(t *testing.T) {
		t.Parallel()

		registry := fanout.NewRegistry(8)
		t.Cleanup(func() { _ = registry.Close() })
		ctx := context.Background()

		sub1 := registry.Subscribe(ctx, "user-1")
		sub2 := registry.Subscribe(ctx, "user-1")
		other := registry.Subscribe(ctx, "user-2")

		require.NoError(t, registry.Publish(ctx, "user-1", fanout.UnreadCountMessage(3)))

		for _, sub := range []fanout.Subscriber{sub1, sub2} {
			msg := receiveMessage(t, sub)
			assert.Equal(t, fanout.KindUnreadCount, msg.Kind)
			assert.Equal(t, fanout.UnreadCountPayload{Count: 3}, msg.Payload)
		}

		select {
		case msg := <-other.Receive():
			t.Fatalf("unexpected message for other recipient: %+v", msg)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("publishing to an unknown recipient is a no-op", func(t *testing.T) {
		t.Parallel()

		registry := fanout.NewRegistry(8)
		t.Cleanup(func() { _ = registry.Close() })

		assert.NoError(t, registry.Publish(context.Background(), "nobody", fanout.AllMarkedMessage()))
	})

	t.Run("slow connection drops messages instead of blocking", func(t *testing.T) {
		t.Parallel()

		registry := fanout.NewRegistry(1)
		t.Cleanup(func() { _ = registry.Close() })
		ctx := context.Background()

		_ = registry.Subscribe(ctx, "user-1")

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := range 10 {
				_ = registry.Publish(ctx, "user-1", fanout.UnreadCountMessage(i))
			}
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("publish blocked on a slow connection")
		}
	})
}

func TestRegistryLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("context cancellation removes the connection", func(t *testing.T) {
		t.Parallel()

		registry := fanout.NewRegistry(8)
		t.Cleanup(func() { _ = registry.Close() })

		ctx, cancel := context.WithCancel(context.Background())
		registry.Subscribe(ctx, "user-1")
		require.Equal(t, 1, registry.Connections("user-1"))

		cancel()
		assert.Eventually(t, func() bool {
			return registry.Connections("user-1") == 0
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("closed registry hands out closed subscribers", func(t *testing.T) {
		t.Parallel()

		registry := fanout.NewRegistry(8)
		require.NoError(t, registry.Close())

		sub := registry.Subscribe(context.Background(), "user-1")
		_, ok := <-sub.Receive()
		assert.False(t, ok)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		t.Parallel()

		registry := fanout.NewRegistry(8)
		require.NoError(t, registry.Close())
		assert.NoError(t, registry.Close())
	})
}
