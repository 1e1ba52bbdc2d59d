package notify

import "fmt"

// Channel identifies a delivery transport. Channel values are stable
// strings: they are persisted in queue entries and delivery logs and must
// not change between releases.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
	ChannelInstant Channel = "instant" // instant-message gateway (e.g. WhatsApp connector)
	ChannelPush    Channel = "push"    // real-time/in-app notification
)

// Channels lists every channel known to the engine.
var Channels = []Channel{ChannelEmail, ChannelSMS, ChannelInstant, ChannelPush}

// Valid reports whether c is a known channel identifier.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelInstant, ChannelPush:
		return true
	}
	return false
}

func (c Channel) String() string {
	return string(c)
}

// ParseChannel converts a stored string into a Channel.
func ParseChannel(s string) (Channel, error) {
	c := Channel(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownChannel, s)
	}
	return c, nil
}
