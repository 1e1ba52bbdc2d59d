package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const defaultBridgeChannel = "notifykit:fanout"

// RedisBridge spreads protocol messages across instances. Publish goes
// to a shared Redis channel; every instance (including the publishing
// one) receives it in Run and forwards it to its local registry, so a
// recipient connected to any instance sees the message.
//
// Typed payloads survive as JSON objects: a message that crosses the
// bridge carries its payload as decoded JSON rather than the original
// struct, which is what transports serialize anyway.
type RedisBridge struct {
	client   *redis.Client
	registry *Registry
	channel  string
	log      *slog.Logger
}

// BridgeOption configures a RedisBridge.
type BridgeOption func(*RedisBridge)

// WithBridgeChannel overrides the Redis channel name.
func WithBridgeChannel(channel string) BridgeOption {
	return func(b *RedisBridge) {
		if channel != "" {
			b.channel = channel
		}
	}
}

// WithBridgeLogger sets the logger for subscription failures.
func WithBridgeLogger(log *slog.Logger) BridgeOption {
	return func(b *RedisBridge) {
		if log != nil {
			b.log = log
		}
	}
}

// NewRedisBridge creates a bridge over the given client and local
// registry.
func NewRedisBridge(client *redis.Client, registry *Registry, opts ...BridgeOption) (*RedisBridge, error) {
	if client == nil {
		return nil, ErrRedisNil
	}
	if registry == nil {
		return nil, ErrRegistryNil
	}

	b := &RedisBridge{
		client:   client,
		registry: registry,
		channel:  defaultBridgeChannel,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

type bridgeEnvelope struct {
	RecipientID string  `json:"recipient_id"`
	Message     Message `json:"message"`
}

// Publish implements Publisher by relaying the message through Redis.
func (b *RedisBridge) Publish(ctx context.Context, recipientID string, msg Message) error {
	data, err := json.Marshal(bridgeEnvelope{RecipientID: recipientID, Message: msg})
	if err != nil {
		return fmt.Errorf("failed to marshal fan-out envelope: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish fan-out envelope: %w", err)
	}
	return nil
}

// Run subscribes to the bridge channel and forwards incoming envelopes
// to the local registry until ctx is cancelled. It is errgroup
// compatible: cancellation returns nil.
func (b *RedisBridge) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer func() { _ = pubsub.Close() }()

	// Force the subscription before reporting ready.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to fan-out channel %q: %w", b.channel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var env bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.ErrorContext(ctx, "dropped malformed fan-out envelope", slog.Any("error", err))
				continue
			}
			if err := b.registry.Publish(ctx, env.RecipientID, env.Message); err != nil {
				b.log.ErrorContext(ctx, "failed to deliver fan-out envelope",
					slog.String("recipient_id", env.RecipientID), slog.Any("error", err))
			}
		}
	}
}
