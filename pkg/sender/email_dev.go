package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// DevEmailSender implements the email channel for local development.
// It writes each message as an HTML file plus a JSON metadata file
// instead of calling an email service.
type DevEmailSender struct {
	dir string
}

// NewDevEmailSender creates a development email sender that saves
// messages to disk. The directory is created on first send.
func NewDevEmailSender(dir string) *DevEmailSender {
	return &DevEmailSender{dir: dir}
}

func (s *DevEmailSender) Channel() notify.Channel {
	return notify.ChannelEmail
}

type devEmailMetadata struct {
	Timestamp string `json:"timestamp"`
	SendTo    string `json:"send_to"`
	Subject   string `json:"subject"`
}

func (s *DevEmailSender) Send(ctx context.Context, rcpt notify.Recipient, content notify.Content) error {
	if rcpt.Email == "" {
		return notify.Permanent(notify.ErrNoRecipientContact)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return notify.Transient(fmt.Errorf("%w: failed to create directory: %v", ErrSendFailed, err))
	}

	now := time.Now()
	base := fmt.Sprintf("%s_%s", now.Format("2006_01_02_150405"), sanitizeFilename(content.Subject))

	htmlPath := filepath.Join(s.dir, base+".html")
	if err := os.WriteFile(htmlPath, []byte(content.Body), 0o644); err != nil {
		return notify.Transient(fmt.Errorf("%w: failed to write HTML file: %v", ErrSendFailed, err))
	}

	metadata, err := json.MarshalIndent(devEmailMetadata{
		Timestamp: now.Format(time.RFC3339),
		SendTo:    rcpt.Email,
		Subject:   content.Subject,
	}, "", "  ")
	if err != nil {
		return notify.Permanent(fmt.Errorf("%w: failed to marshal metadata: %v", ErrSendFailed, err))
	}
	if err := os.WriteFile(filepath.Join(s.dir, base+".json"), metadata, 0o644); err != nil {
		return notify.Transient(fmt.Errorf("%w: failed to write JSON file: %v", ErrSendFailed, err))
	}

	return nil
}

var sanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = sanitizeRegex.ReplaceAllString(s, "")

	const maxLength = 100
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	if s == "" {
		s = "notification"
	}
	return strings.ToLower(s)
}
