package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notify"
	"github.com/dmitrymomot/notifykit/pkg/queue"
)

func TestNewEnqueuer(t *testing.T) {
	t.Parallel()

	t.Run("nil repository", func(t *testing.T) {
		t.Parallel()

		_, err := queue.NewEnqueuer(nil)
		assert.ErrorIs(t, err, queue.ErrRepositoryNil)
	})
}

func TestEnqueue(t *testing.T) {
	t.Parallel()

	newEnqueuer := func(t *testing.T) (*queue.Enqueuer, *queue.MemoryStorage) {
		t.Helper()
		storage := queue.NewMemoryStorage()
		t.Cleanup(func() { _ = storage.Close() })
		enq, err := queue.NewEnqueuer(storage)
		require.NoError(t, err)
		return enq, storage
	}

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		enq, storage := newEnqueuer(t)

		entry, err := enq.Enqueue(context.Background(), "quote_accepted", "user-1", notify.ChannelEmail,
			map[string]any{"firstName": "Ada"})
		require.NoError(t, err)

		assert.Equal(t, "quote_accepted", entry.TemplateCode)
		assert.Equal(t, "user-1", entry.RecipientID)
		assert.Equal(t, notify.ChannelEmail, entry.Channel)
		assert.Equal(t, notify.PriorityDefault, entry.Priority)
		assert.Equal(t, queue.StatusPending, entry.Status)
		assert.Equal(t, queue.DefaultRetryPolicy(), entry.Retry)
		assert.WithinDuration(t, time.Now(), entry.ScheduledAt, time.Second)
		assert.JSONEq(t, `{"firstName":"Ada"}`, string(entry.Payload))

		stored, err := storage.GetEntry(context.Background(), entry.ID)
		require.NoError(t, err)
		assert.Equal(t, entry.ID, stored.ID)
	})

	t.Run("delay pushes scheduled time", func(t *testing.T) {
		t.Parallel()

		enq, _ := newEnqueuer(t)

		entry, err := enq.Enqueue(context.Background(), "quote_accepted", "user-1", notify.ChannelSMS,
			nil, queue.WithDelay(10*time.Minute))
		require.NoError(t, err)

		assert.WithinDuration(t, time.Now().Add(10*time.Minute), entry.ScheduledAt, time.Second)
	})

	t.Run("explicit scheduled time wins over delay", func(t *testing.T) {
		t.Parallel()

		enq, _ := newEnqueuer(t)
		at := time.Now().Add(time.Hour).Truncate(time.Second)

		entry, err := enq.Enqueue(context.Background(), "quote_accepted", "user-1", notify.ChannelPush,
			nil, queue.WithDelay(time.Minute), queue.WithScheduledAt(at))
		require.NoError(t, err)

		assert.Equal(t, at, entry.ScheduledAt)
	})

	t.Run("priority and retry overrides", func(t *testing.T) {
		t.Parallel()

		enq, _ := newEnqueuer(t)
		policy := queue.RetryPolicy{MaxAttempts: 1, Backoff: queue.BackoffFixed, BaseInterval: time.Minute}

		entry, err := enq.Enqueue(context.Background(), "quote_accepted", "user-1", notify.ChannelEmail,
			nil, queue.WithPriority(notify.PriorityUrgent), queue.WithRetryPolicy(policy))
		require.NoError(t, err)

		assert.Equal(t, notify.PriorityUrgent, entry.Priority)
		assert.Equal(t, int8(1), entry.Retry.MaxAttempts)
		assert.Equal(t, queue.BackoffFixed, entry.Retry.Backoff)
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()

		enq, _ := newEnqueuer(t)
		ctx := context.Background()

		_, err := enq.Enqueue(ctx, "", "user-1", notify.ChannelEmail, nil)
		assert.ErrorIs(t, err, queue.ErrTemplateCodeEmpty)

		_, err = enq.Enqueue(ctx, "quote_accepted", "", notify.ChannelEmail, nil)
		assert.ErrorIs(t, err, queue.ErrRecipientEmpty)

		_, err = enq.Enqueue(ctx, "quote_accepted", "user-1", notify.Channel("fax"), nil)
		assert.ErrorIs(t, err, notify.ErrUnknownChannel)
	})

	t.Run("unmarshalable payload", func(t *testing.T) {
		t.Parallel()

		enq, _ := newEnqueuer(t)

		_, err := enq.Enqueue(context.Background(), "quote_accepted", "user-1", notify.ChannelEmail,
			map[string]any{"bad": make(chan int)})
		assert.ErrorIs(t, err, queue.ErrPayloadMarshal)
	})
}

func TestCancel(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	t.Cleanup(func() { _ = storage.Close() })
	enq, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	entry, err := enq.Enqueue(context.Background(), "quote_accepted", "user-1", notify.ChannelEmail, nil,
		queue.WithDelay(time.Hour))
	require.NoError(t, err)

	require.NoError(t, enq.Cancel(context.Background(), entry.ID))

	_, err = storage.GetEntry(context.Background(), entry.ID)
	assert.ErrorIs(t, err, queue.ErrEntryNotFound)
}
