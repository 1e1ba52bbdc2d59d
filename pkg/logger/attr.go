package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// RecipientID records the recipient identifier under the key "recipient_id".
func RecipientID(id string) slog.Attr {
	return slog.String("recipient_id", id)
}

// TemplateCode records the template code under the key "template_code".
func TemplateCode(code string) slog.Attr {
	return slog.String("template_code", code)
}

// Channel records the delivery channel under the key "channel".
func Channel(channel any) slog.Attr {
	return slog.Any("channel", channel)
}

// EntryID records the delivery entry identifier under the key "entry_id".
func EntryID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("entry_id", id)
}

// BindingID records the event binding identifier under the key "binding_id".
func BindingID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("binding_id", id)
}

// EventType records the event type under the key "event_type".
func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

// Attempt records the delivery attempt number under the key "attempt".
func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
