package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notify"
	"github.com/dmitrymomot/notifykit/pkg/queue"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

// RecipientDirectory resolves recipient IDs to contact details at send
// time. The host application implements it; the engine stores only IDs.
type RecipientDirectory interface {
	Resolve(ctx context.Context, recipientID string) (notify.Recipient, error)
}

// Dispatcher drains the delivery queue: it claims due entries, renders
// their templates, hands the result to the matching channel sender, and
// settles the entry according to the outcome and retry policy. Every
// attempt is recorded in the delivery log.
type Dispatcher struct {
	repo      queue.WorkerRepository
	templates template.Store
	renderer  *template.Renderer
	logStore  LogStore
	directory RecipientDirectory
	senders   map[notify.Channel]notify.Sender

	workerID uuid.UUID
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopMu   sync.Mutex

	pollInterval time.Duration
	lockTimeout  time.Duration
	sendTimeout  time.Duration
	batchSize    int
	logger       *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopping atomic.Bool
}

// NewDispatcher creates a dispatcher over the given queue repository,
// template store, delivery log and recipient directory.
func NewDispatcher(repo queue.WorkerRepository, templates template.Store, logStore LogStore, directory RecipientDirectory, opts ...Option) (*Dispatcher, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	if templates == nil {
		return nil, ErrTemplateStoreNil
	}
	if logStore == nil {
		return nil, ErrLogStoreNil
	}
	if directory == nil {
		return nil, ErrDirectoryNil
	}

	options := &dispatcherOptions{
		renderer:     template.NewRenderer(),
		pollInterval: time.Second,
		lockTimeout:  5 * time.Minute,
		sendTimeout:  30 * time.Second,
		batchSize:    10,
		concurrency:  4,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Dispatcher{
		repo:         repo,
		templates:    templates,
		renderer:     options.renderer,
		logStore:     logStore,
		directory:    directory,
		senders:      make(map[notify.Channel]notify.Sender),
		workerID:     uuid.New(),
		sem:          make(chan struct{}, options.concurrency),
		pollInterval: options.pollInterval,
		lockTimeout:  options.lockTimeout,
		sendTimeout:  options.sendTimeout,
		batchSize:    options.batchSize,
		logger:       options.logger,
	}, nil
}

// RegisterSender registers a channel sender. Registering a second sender
// for the same channel replaces the first.
func (d *Dispatcher) RegisterSender(s notify.Sender) {
	if s == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.senders[s.Channel()] = s
}

// Start begins draining the queue in the background.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.cancel != nil {
		d.mu.Unlock()
		return ErrAlreadyStarted
	}
	if len(d.senders) == 0 {
		d.mu.Unlock()
		return ErrNoSenders
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.mu.Unlock()

	d.stopping.Store(false)
	go d.run()

	d.logger.Info("dispatcher started",
		slog.String("worker_id", d.workerID.String()),
		slog.Int("concurrency", cap(d.sem)),
		slog.Int("batch_size", d.batchSize))
	return nil
}

// Stop gracefully shuts down the dispatcher, waiting for in-flight
// deliveries to settle.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if d.cancel == nil {
		d.mu.Unlock()
		return ErrNotStarted
	}

	d.stopMu.Lock()
	d.stopping.Store(true)
	d.stopMu.Unlock()

	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()

	cancel()
	d.wg.Wait()

	d.logger.Info("dispatcher stopped", slog.String("worker_id", d.workerID.String()))
	return nil
}

// Run starts the dispatcher and returns a function suitable for errgroup.
func (d *Dispatcher) Run(ctx context.Context) func() error {
	return func() error {
		if err := d.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return d.Stop()
	}
}

func (d *Dispatcher) run() {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.drainOnce()
		}
	}
}

// drainOnce claims one batch and processes it on the worker pool.
func (d *Dispatcher) drainOnce() {
	entries, err := d.repo.ClaimDue(d.ctx, d.workerID, d.batchSize, d.lockTimeout)
	if err != nil {
		if !errors.Is(err, queue.ErrNoEntryToClaim) && !errors.Is(err, context.Canceled) {
			d.logger.Error("failed to claim delivery entries",
				slog.String("worker_id", d.workerID.String()),
				slog.Any("error", err))
		}
		return
	}

	for _, entry := range entries {
		select {
		case d.sem <- struct{}{}:
		case <-d.ctx.Done():
			return
		}

		d.stopMu.Lock()
		if d.stopping.Load() {
			d.stopMu.Unlock()
			<-d.sem
			return
		}
		d.wg.Add(1)
		d.stopMu.Unlock()

		go func(entry queue.Entry) {
			defer d.wg.Done()
			defer func() { <-d.sem }()
			d.process(entry)
		}(entry)
	}
}

// process attempts one delivery and settles the entry.
func (d *Dispatcher) process(entry queue.Entry) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("delivery panicked",
				slog.String("worker_id", d.workerID.String()),
				slog.String("entry_id", entry.ID.String()),
				slog.Any("panic", r))
			d.settle(entry, notify.Recipient{}, notify.Content{}, fmt.Errorf("panic during delivery: %v", r))
		}
	}()

	rcpt, content, err := d.prepareAndSend(entry)
	d.settle(entry, rcpt, content, err)

	if err == nil {
		d.logger.Info("delivery sent",
			slog.String("worker_id", d.workerID.String()),
			slog.String("entry_id", entry.ID.String()),
			slog.String("template", entry.TemplateCode),
			slog.String("channel", string(entry.Channel)),
			slog.Duration("duration", time.Since(start)))
	}
}

// prepareAndSend renders the entry and hands it to the channel sender.
// The returned content and recipient are whatever was resolved before
// the failure, for the delivery log.
func (d *Dispatcher) prepareAndSend(entry queue.Entry) (notify.Recipient, notify.Content, error) {
	// Deliveries survive dispatcher shutdown: the send context is
	// detached from the worker lifecycle so graceful stop lets
	// in-flight sends finish.
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	d.mu.RLock()
	sender, ok := d.senders[entry.Channel]
	d.mu.RUnlock()
	if !ok {
		return notify.Recipient{}, notify.Content{}, notify.Permanent(fmt.Errorf("%w: %q", notify.ErrUnknownChannel, entry.Channel))
	}

	tmpl, err := d.templates.Get(ctx, entry.TemplateCode)
	if err != nil {
		return notify.Recipient{}, notify.Content{}, notify.Permanent(fmt.Errorf("failed to load template: %w", err))
	}

	rcpt, err := d.directory.Resolve(ctx, entry.RecipientID)
	if err != nil {
		// The directory may be temporarily unavailable; let the retry
		// policy decide unless the directory classified it itself.
		if !notify.IsPermanent(err) {
			err = notify.Transient(fmt.Errorf("failed to resolve recipient: %w", err))
		}
		return notify.Recipient{}, notify.Content{}, err
	}

	var vars map[string]any
	if len(entry.Payload) > 0 {
		if err := json.Unmarshal(entry.Payload, &vars); err != nil {
			return rcpt, notify.Content{}, notify.Permanent(fmt.Errorf("failed to decode payload: %w", err))
		}
	}

	content, err := d.renderer.Render(tmpl, entry.Channel, vars)
	if err != nil {
		// Rendering is deterministic; a failure now fails forever.
		return rcpt, notify.Content{}, notify.Permanent(err)
	}
	content.Priority = entry.Priority
	content.Metadata = map[string]any{"template_code": entry.TemplateCode}

	if err := sender.Send(ctx, rcpt, content); err != nil {
		return rcpt, content, err
	}
	return rcpt, content, nil
}

// settle records the attempt in the delivery log and transitions the
// queue entry: sent on success, pending with a backoff pause while the
// retry policy allows, failed otherwise.
func (d *Dispatcher) settle(entry queue.Entry, rcpt notify.Recipient, content notify.Content, sendErr error) {
	// Queue settlement must not be cut short by shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	outcome := OutcomeSent
	var errMsg *string
	if sendErr != nil {
		outcome = OutcomeFailed
		msg := sendErr.Error()
		errMsg = &msg
	}

	if err := d.logStore.Append(ctx, LogEntry{
		ID:           uuid.New(),
		EntryID:      entry.ID,
		TemplateCode: entry.TemplateCode,
		RecipientID:  entry.RecipientID,
		Contact:      contactFor(entry.Channel, rcpt),
		Channel:      entry.Channel,
		Subject:      content.Subject,
		Body:         content.Body,
		Outcome:      outcome,
		Error:        errMsg,
		AttemptedAt:  time.Now(),
	}); err != nil {
		d.logger.Error("failed to append delivery log",
			slog.String("entry_id", entry.ID.String()),
			slog.Any("error", err))
	}

	if sendErr == nil {
		if err := d.repo.MarkSent(ctx, entry.ID); err != nil {
			d.logger.Error("failed to mark entry sent",
				slog.String("entry_id", entry.ID.String()),
				slog.Any("error", err))
		}
		return
	}

	attempt := int(entry.Attempts) + 1
	policy := entry.Retry.Normalize()

	if notify.IsPermanent(sendErr) || attempt >= int(policy.MaxAttempts) {
		if err := d.repo.MarkFailed(ctx, entry.ID, sendErr.Error()); err != nil {
			d.logger.Error("failed to mark entry failed",
				slog.String("entry_id", entry.ID.String()),
				slog.Any("error", err))
		}
		d.logger.Warn("delivery failed terminally",
			slog.String("entry_id", entry.ID.String()),
			slog.String("template", entry.TemplateCode),
			slog.String("channel", string(entry.Channel)),
			slog.Int("attempts", attempt),
			slog.Bool("permanent", notify.IsPermanent(sendErr)),
			slog.String("error", sendErr.Error()))
		return
	}

	nextRetryAt := time.Now().Add(policy.NextInterval(attempt))
	if err := d.repo.Reschedule(ctx, entry.ID, sendErr.Error(), nextRetryAt); err != nil {
		d.logger.Error("failed to reschedule entry",
			slog.String("entry_id", entry.ID.String()),
			slog.Any("error", err))
		return
	}
	d.logger.Info("delivery rescheduled",
		slog.String("entry_id", entry.ID.String()),
		slog.String("template", entry.TemplateCode),
		slog.Int("attempt", attempt),
		slog.Time("next_retry_at", nextRetryAt),
		slog.String("error", sendErr.Error()))
}

// contactFor picks the contact detail relevant to the channel for the
// delivery log.
func contactFor(channel notify.Channel, rcpt notify.Recipient) string {
	switch channel {
	case notify.ChannelEmail:
		return rcpt.Email
	case notify.ChannelSMS, notify.ChannelInstant:
		return rcpt.Phone
	default:
		return rcpt.ID
	}
}
