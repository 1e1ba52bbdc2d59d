package queue

import (
	"math"
	"math/rand"
	"time"
)

// BackoffKind selects the shape of the retry pause. The shape is part of
// the entry's retry policy so bindings and templates can pick their own.
type BackoffKind string

const (
	BackoffExponential BackoffKind = "exponential"
	BackoffLinear      BackoffKind = "linear"
	BackoffFixed       BackoffKind = "fixed"
)

// RetryPolicy controls how failed deliveries are re-armed. A zero policy
// is normalized to the defaults by Normalize.
type RetryPolicy struct {
	MaxAttempts  int8          `json:"max_attempts" yaml:"max_attempts"`
	Backoff      BackoffKind   `json:"backoff,omitempty" yaml:"backoff,omitempty"`
	BaseInterval time.Duration `json:"base_interval,omitempty" yaml:"base_interval,omitempty"`
	MaxInterval  time.Duration `json:"max_interval,omitempty" yaml:"max_interval,omitempty"`
	JitterFactor float64       `json:"jitter_factor,omitempty" yaml:"jitter_factor,omitempty"`
}

// DefaultRetryPolicy is exponential backoff with jitter: 5m base doubling
// up to 6h, three attempts total.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		Backoff:      BackoffExponential,
		BaseInterval: 5 * time.Minute,
		MaxInterval:  6 * time.Hour,
		JitterFactor: 0.2,
	}
}

// Normalize fills unset fields with the defaults.
func (p RetryPolicy) Normalize() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.Backoff == "" {
		p.Backoff = def.Backoff
	}
	if p.BaseInterval <= 0 {
		p.BaseInterval = def.BaseInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = def.MaxInterval
	}
	if p.JitterFactor < 0 || p.JitterFactor >= 1 {
		p.JitterFactor = def.JitterFactor
	}
	return p
}

// NextInterval returns the pause before retry number attempt (starting at
// 1). Jitter spreads retries so a provider outage does not produce a
// synchronized retry storm.
func (p RetryPolicy) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	p = p.Normalize()

	var interval float64
	switch p.Backoff {
	case BackoffFixed:
		interval = float64(p.BaseInterval)
	case BackoffLinear:
		interval = float64(p.BaseInterval) * float64(attempt)
	default:
		interval = float64(p.BaseInterval) * math.Pow(2, float64(attempt-1))
	}

	if p.JitterFactor > 0 {
		interval *= 1 + (rand.Float64()*2-1)*p.JitterFactor
	}

	if interval > float64(p.MaxInterval) {
		interval = float64(p.MaxInterval)
	}
	if interval < 0 {
		interval = 0
	}
	return time.Duration(interval)
}
