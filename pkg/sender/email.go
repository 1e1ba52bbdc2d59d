package sender

import (
	"context"
	"fmt"
	"regexp"

	"github.com/mrz1836/postmark"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// EmailConfig configures the Postmark email sender.
type EmailConfig struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"EMAIL_SENDER"`
	ReplyToEmail         string `env:"EMAIL_REPLY_TO"`
}

// EmailSender delivers rendered content through Postmark's transactional
// API.
type EmailSender struct {
	client *postmark.Client
	config EmailConfig
}

// NewEmailSender creates a Postmark-backed email sender. All tokens are
// required so a misconfigured deployment fails at startup instead of at
// first send.
func NewEmailSender(cfg EmailConfig) (*EmailSender, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	}
	if cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: PostmarkAccountToken is required", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}
	if cfg.ReplyToEmail == "" {
		cfg.ReplyToEmail = cfg.SenderEmail
	}

	return &EmailSender{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		config: cfg,
	}, nil
}

func (s *EmailSender) Channel() notify.Channel {
	return notify.ChannelEmail
}

func (s *EmailSender) Send(ctx context.Context, rcpt notify.Recipient, content notify.Content) error {
	if rcpt.Email == "" {
		return notify.Permanent(notify.ErrNoRecipientContact)
	}
	if !emailRegex.MatchString(rcpt.Email) {
		return notify.Permanent(fmt.Errorf("%w: malformed address %q", ErrSendFailed, rcpt.Email))
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:       s.config.SenderEmail,
		ReplyTo:    s.config.ReplyToEmail,
		To:         rcpt.Email,
		Subject:    content.Subject,
		HTMLBody:   content.Body,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		// Transport-level failures are network problems until proven
		// otherwise.
		return notify.Transient(fmt.Errorf("%w: %v", ErrSendFailed, err))
	}
	if resp.ErrorCode > 0 {
		err := fmt.Errorf("%w: postmark error %d: %s", ErrSendFailed, resp.ErrorCode, resp.Message)
		if postmarkPermanent(resp.ErrorCode) {
			return notify.Permanent(err)
		}
		return notify.Transient(err)
	}
	return nil
}

// postmarkPermanent reports whether a Postmark API error code describes
// a condition a retry cannot fix: invalid or inactive recipients,
// rejected sender signatures, suppressed addresses.
func postmarkPermanent(code int64) bool {
	switch code {
	case 300, // invalid email request
		400, // sender signature not found
		401, // sender signature not confirmed
		406: // inactive recipient
		return true
	}
	return false
}
