package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// InstantConfig configures the instant-message gateway sender.
type InstantConfig struct {
	GatewayURL string        `env:"IM_GATEWAY_URL"`
	APIKey     string        `env:"IM_GATEWAY_API_KEY"`
	Timeout    time.Duration `env:"IM_GATEWAY_TIMEOUT" envDefault:"15s"`
}

// InstantSender delivers rendered content through a JSON HTTP gateway,
// the common shape of hosted WhatsApp/Telegram connectors: POST a
// message document, get a 2xx on acceptance.
type InstantSender struct {
	gatewayURL string
	apiKey     string
	httpClient *http.Client
}

// InstantOption configures an InstantSender.
type InstantOption func(*InstantSender)

// WithHTTPClient swaps the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) InstantOption {
	return func(s *InstantSender) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// NewInstantSender creates a gateway-backed instant message sender.
func NewInstantSender(cfg InstantConfig, opts ...InstantOption) (*InstantSender, error) {
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("%w: GatewayURL is required", ErrInvalidConfig)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	s := &InstantSender{
		gatewayURL: cfg.GatewayURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *InstantSender) Channel() notify.Channel {
	return notify.ChannelInstant
}

type instantMessage struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

func (s *InstantSender) Send(ctx context.Context, rcpt notify.Recipient, content notify.Content) error {
	if rcpt.Phone == "" {
		return notify.Permanent(notify.ErrNoRecipientContact)
	}

	body, err := json.Marshal(instantMessage{To: rcpt.Phone, Text: content.Body})
	if err != nil {
		return notify.Permanent(fmt.Errorf("%w: failed to marshal message: %v", ErrSendFailed, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return notify.Permanent(fmt.Errorf("%w: %v", ErrSendFailed, err))
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return notify.Transient(fmt.Errorf("%w: %v", ErrSendFailed, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	wrapped := fmt.Errorf("%w: gateway returned %d: %s", ErrSendFailed, resp.StatusCode, bytes.TrimSpace(detail))

	switch {
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return notify.Transient(wrapped)
	default:
		return notify.Permanent(wrapped)
	}
}
