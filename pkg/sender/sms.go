package sender

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	api "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// SMSConfig configures the Twilio SMS sender.
type SMSConfig struct {
	AccountSID string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	FromNumber string `env:"TWILIO_FROM_NUMBER"`
}

// SMSSender delivers rendered content as SMS through Twilio. The
// subject line is dropped; SMS carries only the body.
type SMSSender struct {
	client     *twilio.RestClient
	fromNumber string
}

// NewSMSSender creates a Twilio-backed SMS sender.
func NewSMSSender(cfg SMSConfig) (*SMSSender, error) {
	if cfg.AccountSID == "" {
		return nil, fmt.Errorf("%w: AccountSID is required", ErrInvalidConfig)
	}
	if cfg.AuthToken == "" {
		return nil, fmt.Errorf("%w: AuthToken is required", ErrInvalidConfig)
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("%w: FromNumber is required", ErrInvalidConfig)
	}

	return &SMSSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		fromNumber: cfg.FromNumber,
	}, nil
}

func (s *SMSSender) Channel() notify.Channel {
	return notify.ChannelSMS
}

func (s *SMSSender) Send(ctx context.Context, rcpt notify.Recipient, content notify.Content) error {
	if rcpt.Phone == "" {
		return notify.Permanent(notify.ErrNoRecipientContact)
	}

	params := &api.CreateMessageParams{}
	params.SetTo(rcpt.Phone)
	params.SetFrom(s.fromNumber)
	params.SetBody(content.Body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return classifyTwilioError(err)
	}
	return nil
}

// classifyTwilioError maps Twilio REST errors onto the retry taxonomy.
// Client errors (bad number, blocked recipient) cannot be fixed by
// retrying; rate limits and server errors can.
func classifyTwilioError(err error) error {
	var restErr *client.TwilioRestError
	if errors.As(err, &restErr) {
		wrapped := fmt.Errorf("%w: twilio error %d: %s", ErrSendFailed, restErr.Code, restErr.Message)
		if restErr.Status == 429 || restErr.Status >= 500 {
			return notify.Transient(wrapped)
		}
		if restErr.Status >= 400 {
			return notify.Permanent(wrapped)
		}
		return notify.Transient(wrapped)
	}
	return notify.Transient(fmt.Errorf("%w: %v", ErrSendFailed, err))
}
