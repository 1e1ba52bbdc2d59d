package notify

import "context"

// Recipient carries the contact details a sender needs at send time. The
// host application resolves recipients; the engine never queries user
// records directly.
type Recipient struct {
	ID     string `json:"id"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Locale string `json:"locale,omitempty"` // BCP 47 tag used by rendering helpers
}

// Content is the rendered result delivered over a channel. Subject is
// empty for channels that have no subject line. Priority and Metadata
// travel with the rendered content so senders that persist a record of
// the delivery (the push sender) keep the importance and origin of the
// message without reaching back into the template store.
type Content struct {
	Subject  string         `json:"subject,omitempty"`
	Body     string         `json:"body"`
	Priority Priority       `json:"priority,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Sender delivers rendered content over one transport. Implementations
// must be safe for concurrent use and should respect ctx cancellation:
// the dispatcher bounds every call with a per-send timeout.
//
// Failures must be classified with Transient or Permanent so the retry
// policy can distinguish "try again later" from "will never succeed".
type Sender interface {
	// Channel returns the channel this sender serves.
	Channel() Channel

	// Send delivers content to the recipient. A nil return means the
	// transport accepted the message.
	Send(ctx context.Context, rcpt Recipient, content Content) error
}
