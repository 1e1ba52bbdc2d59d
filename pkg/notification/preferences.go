package notification

import (
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// Preferences holds a recipient's per-channel delivery opt-outs. A
// channel absent from Channels is treated as enabled, so a recipient
// with no stored preferences receives everything.
type Preferences struct {
	RecipientID string                  `json:"recipient_id"`
	Channels    map[notify.Channel]bool `json:"channels"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// DefaultPreferences returns preferences with every channel enabled.
func DefaultPreferences(recipientID string) Preferences {
	return Preferences{
		RecipientID: recipientID,
		Channels: map[notify.Channel]bool{
			notify.ChannelEmail:   true,
			notify.ChannelSMS:     true,
			notify.ChannelInstant: true,
			notify.ChannelPush:    true,
		},
	}
}

// ChannelEnabled reports whether the recipient accepts deliveries on the
// given channel.
func (p Preferences) ChannelEnabled(channel notify.Channel) bool {
	enabled, ok := p.Channels[channel]
	if !ok {
		return true
	}
	return enabled
}
