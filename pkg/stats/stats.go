package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/dispatcher"
	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// ErrLogStoreNil is returned when creating a collector without a log store.
var ErrLogStoreNil = errors.New("log store cannot be nil")

// Counts tallies delivery outcomes for one slice of the log.
type Counts struct {
	Total     int `json:"total"`
	Sent      int `json:"sent"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

func (c *Counts) add(outcome dispatcher.Outcome) {
	c.Total++
	switch outcome {
	case dispatcher.OutcomeSent:
		c.Sent++
	case dispatcher.OutcomeDelivered:
		c.Delivered++
	case dispatcher.OutcomeFailed:
		c.Failed++
	}
}

// Report aggregates the delivery log. Rates are fractions in [0, 1];
// an empty log yields zero rates, not NaN.
type Report struct {
	Counts

	// DeliveryRate is the fraction of attempts that left the system
	// successfully (sent or delivered).
	DeliveryRate float64 `json:"delivery_rate"`

	// FailureRate is the fraction of attempts that failed.
	FailureRate float64 `json:"failure_rate"`

	ByChannel  map[notify.Channel]Counts `json:"by_channel"`
	ByTemplate map[string]Counts         `json:"by_template"`

	// From and To echo the requested window, when one was set.
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// Option narrows what a Collect call aggregates.
type Option func(*dispatcher.LogFilter)

// WithWindow restricts the report to attempts within [from, to).
func WithWindow(from, to time.Time) Option {
	return func(f *dispatcher.LogFilter) {
		f.From = &from
		f.To = &to
	}
}

// WithRecipient restricts the report to one recipient.
func WithRecipient(recipientID string) Option {
	return func(f *dispatcher.LogFilter) {
		f.RecipientID = recipientID
	}
}

// WithTemplate restricts the report to one template code.
func WithTemplate(code string) Option {
	return func(f *dispatcher.LogFilter) {
		f.TemplateCode = code
	}
}

// WithChannel restricts the report to one channel.
func WithChannel(channel notify.Channel) Option {
	return func(f *dispatcher.LogFilter) {
		f.Channel = channel
	}
}

// Collector computes delivery statistics from the delivery log.
type Collector struct {
	log dispatcher.LogStore
}

// NewCollector creates a statistics collector over the given log store.
func NewCollector(log dispatcher.LogStore) (*Collector, error) {
	if log == nil {
		return nil, ErrLogStoreNil
	}
	return &Collector{log: log}, nil
}

// Collect aggregates the matching log entries into a report. An empty
// result set returns a zero-valued report and no error.
func (c *Collector) Collect(ctx context.Context, opts ...Option) (Report, error) {
	var filter dispatcher.LogFilter
	for _, opt := range opts {
		opt(&filter)
	}

	entries, err := c.log.List(ctx, filter)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list delivery log: %w", err)
	}

	report := Report{
		ByChannel:  make(map[notify.Channel]Counts),
		ByTemplate: make(map[string]Counts),
		From:       filter.From,
		To:         filter.To,
	}

	for _, entry := range entries {
		report.Counts.add(entry.Outcome)

		channelCounts := report.ByChannel[entry.Channel]
		channelCounts.add(entry.Outcome)
		report.ByChannel[entry.Channel] = channelCounts

		templateCounts := report.ByTemplate[entry.TemplateCode]
		templateCounts.add(entry.Outcome)
		report.ByTemplate[entry.TemplateCode] = templateCounts
	}

	if report.Total > 0 {
		report.DeliveryRate = float64(report.Sent+report.Delivered) / float64(report.Total)
		report.FailureRate = float64(report.Failed) / float64(report.Total)
	}
	return report, nil
}
