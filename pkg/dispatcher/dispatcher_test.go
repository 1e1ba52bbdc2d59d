package dispatcher_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/dispatcher"
	"github.com/dmitrymomot/notifykit/pkg/notify"
	"github.com/dmitrymomot/notifykit/pkg/queue"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

// fakeSender scripts send outcomes and records every call.
type fakeSender struct {
	channel notify.Channel

	mu       sync.Mutex
	outcomes []error // consumed in order; empty means success
	calls    []notify.Content
}

func (f *fakeSender) Channel() notify.Channel { return f.channel }

func (f *fakeSender) Send(ctx context.Context, rcpt notify.Recipient, content notify.Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, content)
	if len(f.outcomes) == 0 {
		return nil
	}
	out := f.outcomes[0]
	f.outcomes = f.outcomes[1:]
	return out
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeDirectory struct {
	recipients map[string]notify.Recipient
}

func (f *fakeDirectory) Resolve(ctx context.Context, recipientID string) (notify.Recipient, error) {
	rcpt, ok := f.recipients[recipientID]
	if !ok {
		return notify.Recipient{}, notify.Permanent(errors.New("unknown recipient"))
	}
	return rcpt, nil
}

func quoteTemplate(t *testing.T, store template.Store) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), template.Template{
		Code:     "quote_accepted",
		Name:     "Quote accepted",
		Category: "quotes",
		Priority: notify.PriorityNormal,
		Channels: []notify.Channel{notify.ChannelEmail},
		Variables: []template.Variable{
			{Name: "firstName", Type: template.VariableString, Required: true},
			{Name: "amount", Type: template.VariableNumber, Required: true},
		},
		Content: map[notify.Channel]template.Content{
			notify.ChannelEmail: {
				Subject: "Quote accepted, {{firstName}}",
				Body:    "Your quote for {{formatCurrency amount}} was accepted.",
			},
		},
		IsActive: true,
	}))
}

type testRig struct {
	storage    *queue.MemoryStorage
	enqueuer   *queue.Enqueuer
	logStore   *dispatcher.MemoryLogStore
	dispatcher *dispatcher.Dispatcher
	sender     *fakeSender
}

func newRig(t *testing.T, outcomes ...error) *testRig {
	t.Helper()

	storage := queue.NewMemoryStorage()
	t.Cleanup(func() { _ = storage.Close() })

	templates := template.NewMemoryStore()
	quoteTemplate(t, templates)

	logStore := dispatcher.NewMemoryLogStore()
	directory := &fakeDirectory{recipients: map[string]notify.Recipient{
		"user-1": {ID: "user-1", Email: "ada@example.com", Phone: "+15551234567"},
	}}

	d, err := dispatcher.NewDispatcher(storage, templates, logStore, directory,
		dispatcher.WithPollInterval(5*time.Millisecond),
		dispatcher.WithSendTimeout(time.Second),
		dispatcher.WithConcurrency(2),
	)
	require.NoError(t, err)

	snd := &fakeSender{channel: notify.ChannelEmail, outcomes: outcomes}
	d.RegisterSender(snd)

	enq, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	return &testRig{storage: storage, enqueuer: enq, logStore: logStore, dispatcher: d, sender: snd}
}

func (r *testRig) start(t *testing.T) {
	t.Helper()
	require.NoError(t, r.dispatcher.Start(context.Background()))
	t.Cleanup(func() { _ = r.dispatcher.Stop() })
}

// fastRetry retries immediately so tests don't wait on real backoff.
func fastRetry(maxAttempts int8) queue.RetryPolicy {
	return queue.RetryPolicy{
		MaxAttempts:  maxAttempts,
		Backoff:      queue.BackoffFixed,
		BaseInterval: time.Millisecond,
		MaxInterval:  time.Second,
	}
}

func TestNewDispatcher(t *testing.T) {
	t.Parallel()

	templates := template.NewMemoryStore()
	logStore := dispatcher.NewMemoryLogStore()
	directory := &fakeDirectory{}
	storage := queue.NewMemoryStorage()
	t.Cleanup(func() { _ = storage.Close() })

	_, err := dispatcher.NewDispatcher(nil, templates, logStore, directory)
	assert.ErrorIs(t, err, dispatcher.ErrRepositoryNil)

	_, err = dispatcher.NewDispatcher(storage, nil, logStore, directory)
	assert.ErrorIs(t, err, dispatcher.ErrTemplateStoreNil)

	_, err = dispatcher.NewDispatcher(storage, templates, nil, directory)
	assert.ErrorIs(t, err, dispatcher.ErrLogStoreNil)

	_, err = dispatcher.NewDispatcher(storage, templates, logStore, nil)
	assert.ErrorIs(t, err, dispatcher.ErrDirectoryNil)

	t.Run("start without senders", func(t *testing.T) {
		d, err := dispatcher.NewDispatcher(storage, templates, logStore, directory)
		require.NoError(t, err)
		assert.ErrorIs(t, d.Start(context.Background()), dispatcher.ErrNoSenders)
	})
}

func TestDispatcherDelivers(t *testing.T) {
	t.Parallel()

	rig := newRig(t)
	ctx := context.Background()

	entry, err := rig.enqueuer.Enqueue(ctx, "quote_accepted", "user-1", notify.ChannelEmail,
		map[string]any{"firstName": "Ada", "amount": 150})
	require.NoError(t, err)

	rig.start(t)

	require.Eventually(t, func() bool {
		got, err := rig.storage.GetEntry(ctx, entry.ID)
		return err == nil && got.Status == queue.StatusSent
	}, 2*time.Second, 10*time.Millisecond)

	got, err := rig.storage.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, int8(1), got.Attempts)

	require.Equal(t, 1, rig.sender.callCount())
	sent := rig.sender.calls[0]
	assert.Equal(t, "Quote accepted, Ada", sent.Subject)
	assert.Contains(t, sent.Body, "was accepted")
	assert.Equal(t, notify.PriorityNormal, sent.Priority)
	assert.Equal(t, "quote_accepted", sent.Metadata["template_code"])

	logs, err := rig.logStore.List(ctx, dispatcher.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, dispatcher.OutcomeSent, logs[0].Outcome)
	assert.Equal(t, "ada@example.com", logs[0].Contact)
	assert.Equal(t, entry.ID, logs[0].EntryID)
}

func TestDispatcherRetriesTransient(t *testing.T) {
	t.Parallel()

	// First two sends fail transiently, third succeeds.
	rig := newRig(t,
		notify.Transient(errors.New("smtp timeout")),
		notify.Transient(errors.New("smtp timeout")),
	)
	ctx := context.Background()

	entry, err := rig.enqueuer.Enqueue(ctx, "quote_accepted", "user-1", notify.ChannelEmail,
		map[string]any{"firstName": "Ada", "amount": 150},
		queue.WithRetryPolicy(fastRetry(3)))
	require.NoError(t, err)

	rig.start(t)

	require.Eventually(t, func() bool {
		got, err := rig.storage.GetEntry(ctx, entry.ID)
		return err == nil && got.Status == queue.StatusSent
	}, 5*time.Second, 10*time.Millisecond)

	got, err := rig.storage.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, int8(3), got.Attempts)
	assert.Equal(t, 3, rig.sender.callCount())
}

func TestDispatcherExhaustsRetries(t *testing.T) {
	t.Parallel()

	// Transient failure on every attempt with maxAttempts=3: the entry
	// ends failed after exactly three attempts.
	rig := newRig(t,
		notify.Transient(errors.New("smtp timeout")),
		notify.Transient(errors.New("smtp timeout")),
		notify.Transient(errors.New("smtp timeout")),
	)
	ctx := context.Background()

	entry, err := rig.enqueuer.Enqueue(ctx, "quote_accepted", "user-1", notify.ChannelEmail,
		map[string]any{"firstName": "Ada", "amount": 150},
		queue.WithRetryPolicy(fastRetry(3)))
	require.NoError(t, err)

	rig.start(t)

	require.Eventually(t, func() bool {
		got, err := rig.storage.GetEntry(ctx, entry.ID)
		return err == nil && got.Status == queue.StatusFailed
	}, 5*time.Second, 10*time.Millisecond)

	got, err := rig.storage.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, int8(3), got.Attempts)
	assert.Equal(t, 3, rig.sender.callCount())

	// The log has one record per attempt with strictly increasing times.
	logs, err := rig.logStore.List(ctx, dispatcher.LogFilter{Outcome: dispatcher.OutcomeFailed})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	for i := 1; i < len(logs); i++ {
		// Newest first.
		assert.True(t, logs[i-1].AttemptedAt.After(logs[i].AttemptedAt),
			"attempt times must be strictly increasing")
	}
}

func TestDispatcherPermanentFailure(t *testing.T) {
	t.Parallel()

	rig := newRig(t, notify.Permanent(errors.New("blocked recipient")))
	ctx := context.Background()

	entry, err := rig.enqueuer.Enqueue(ctx, "quote_accepted", "user-1", notify.ChannelEmail,
		map[string]any{"firstName": "Ada", "amount": 150},
		queue.WithRetryPolicy(fastRetry(5)))
	require.NoError(t, err)

	rig.start(t)

	require.Eventually(t, func() bool {
		got, err := rig.storage.GetEntry(ctx, entry.ID)
		return err == nil && got.Status == queue.StatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	// Permanent failures are never retried, even with attempts left.
	got, err := rig.storage.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, int8(1), got.Attempts)
	assert.Equal(t, 1, rig.sender.callCount())
}

func TestDispatcherUnresolvableRecipient(t *testing.T) {
	t.Parallel()

	rig := newRig(t)
	ctx := context.Background()

	entry, err := rig.enqueuer.Enqueue(ctx, "quote_accepted", "ghost", notify.ChannelEmail,
		map[string]any{"firstName": "Ada", "amount": 150})
	require.NoError(t, err)

	rig.start(t)

	require.Eventually(t, func() bool {
		got, err := rig.storage.GetEntry(ctx, entry.ID)
		return err == nil && got.Status == queue.StatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	assert.Zero(t, rig.sender.callCount())
}

func TestDispatcherMissingTemplate(t *testing.T) {
	t.Parallel()

	rig := newRig(t)
	ctx := context.Background()

	entry, err := rig.enqueuer.Enqueue(ctx, "no_such_template", "user-1", notify.ChannelEmail, nil)
	require.NoError(t, err)

	rig.start(t)

	require.Eventually(t, func() bool {
		got, err := rig.storage.GetEntry(ctx, entry.ID)
		return err == nil && got.Status == queue.StatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	logs, err := rig.logStore.List(ctx, dispatcher.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].Error)
	assert.Contains(t, *logs[0].Error, "failed to load template")
}

func TestMemoryLogStoreMarkDelivered(t *testing.T) {
	t.Parallel()

	store := dispatcher.NewMemoryLogStore()
	ctx := context.Background()

	sent := dispatcher.LogEntry{
		ID:           uuid.New(),
		TemplateCode: "quote_accepted",
		RecipientID:  "user-1",
		Channel:      notify.ChannelEmail,
		Outcome:      dispatcher.OutcomeSent,
		AttemptedAt:  time.Now(),
	}
	require.NoError(t, store.Append(ctx, sent))

	failed := sent
	failed.ID = uuid.New()
	failed.Outcome = dispatcher.OutcomeFailed
	require.NoError(t, store.Append(ctx, failed))

	require.NoError(t, store.MarkDelivered(ctx, sent.ID))
	assert.ErrorIs(t, store.MarkDelivered(ctx, failed.ID), dispatcher.ErrLogNotSent)
	assert.ErrorIs(t, store.MarkDelivered(ctx, uuid.New()), dispatcher.ErrLogNotFound)

	logs, err := store.List(ctx, dispatcher.LogFilter{Outcome: dispatcher.OutcomeDelivered})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.NotNil(t, logs[0].DeliveredAt)
}
