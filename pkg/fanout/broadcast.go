package fanout

import (
	"context"
	"sync"
)

// Subscriber receives protocol messages for one recipient connection.
// Implementations must be safe for concurrent use.
type Subscriber interface {
	// Receive returns the channel delivering broadcast messages. The
	// channel is closed when the subscriber closes.
	Receive() <-chan Message

	// Close closes the subscriber and releases resources. Close is
	// idempotent.
	Close() error
}

type subscriber struct {
	ch     chan Message
	closed bool
	mu     sync.RWMutex
}

func newSubscriber(bufferSize int) *subscriber {
	return &subscriber{ch: make(chan Message, bufferSize)}
}

func (s *subscriber) Receive() <-chan Message {
	return s.ch
}

func (s *subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	return nil
}

// send is non-blocking: a subscriber whose buffer is full loses the
// message instead of stalling the broadcast.
func (s *subscriber) send(msg Message) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}

// recipientTopic fans messages out to all live connections of one
// recipient.
type recipientTopic struct {
	subscribers map[*subscriber]struct{}
}

// Registry routes protocol messages to per-recipient topics. Topics
// appear on first subscribe and disappear when the last connection
// goes away, so an idle deployment holds no per-recipient state.
type Registry struct {
	mu         sync.RWMutex
	topics     map[string]*recipientTopic
	bufferSize int
	closed     bool
	cleanupWg  sync.WaitGroup
}

// NewRegistry creates a registry. bufferSize sets each connection's
// channel buffer; a minimum of 1 is enforced so sends stay non-blocking.
func NewRegistry(bufferSize int) *Registry {
	return &Registry{
		topics:     make(map[string]*recipientTopic),
		bufferSize: max(bufferSize, 1),
	}
}

// Subscribe registers a new connection for the recipient. The
// subscription is cleaned up when ctx is cancelled or the returned
// subscriber is closed. A closed registry returns a closed subscriber.
func (r *Registry) Subscribe(ctx context.Context, recipientID string) Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub := newSubscriber(r.bufferSize)
	if r.closed {
		_ = sub.Close()
		return sub
	}

	topic, exists := r.topics[recipientID]
	if !exists {
		topic = &recipientTopic{subscribers: make(map[*subscriber]struct{})}
		r.topics[recipientID] = topic
	}
	topic.subscribers[sub] = struct{}{}

	if ctx.Done() != nil {
		r.cleanupWg.Add(1)
		go func() {
			defer r.cleanupWg.Done()
			<-ctx.Done()
			r.unsubscribe(recipientID, sub)
		}()
	}

	return sub
}

// Publish sends a message to every live connection of the recipient.
// Slow connections drop the message and are removed; the recipient
// recovers state on reconnect.
func (r *Registry) Publish(ctx context.Context, recipientID string, msg Message) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil
	}

	topic, exists := r.topics[recipientID]
	if !exists {
		return nil
	}

	for sub := range topic.subscribers {
		if !sub.send(msg) {
			go r.unsubscribe(recipientID, sub)
		}
	}
	return nil
}

// Connections reports the number of live connections for the recipient.
func (r *Registry) Connections(recipientID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	topic, exists := r.topics[recipientID]
	if !exists {
		return 0
	}
	return len(topic.subscribers)
}

// Close shuts down the registry and closes all subscribers.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true

	for _, topic := range r.topics {
		for sub := range topic.subscribers {
			_ = sub.Close()
		}
	}
	clear(r.topics)
	r.mu.Unlock()

	r.cleanupWg.Wait()
	return nil
}

func (r *Registry) unsubscribe(recipientID string, sub *subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	topic, exists := r.topics[recipientID]
	if !exists {
		_ = sub.Close()
		return
	}

	delete(topic.subscribers, sub)
	if len(topic.subscribers) == 0 {
		delete(r.topics, recipientID)
	}
	_ = sub.Close()
}
