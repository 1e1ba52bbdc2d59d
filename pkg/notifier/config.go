package notifier

import "time"

// Config holds the tunables of the delivery pipeline. Load it with
// pkg/config and pass it via WithConfig.
type Config struct {
	// PollInterval is how often idle workers look for due entries.
	PollInterval time.Duration `env:"NOTIFIER_POLL_INTERVAL" envDefault:"1s"`

	// LockTimeout is the claim lease on a processing entry. Entries
	// whose lease expires return to the pending pool.
	LockTimeout time.Duration `env:"NOTIFIER_LOCK_TIMEOUT" envDefault:"5m"`

	// SendTimeout bounds a single channel send.
	SendTimeout time.Duration `env:"NOTIFIER_SEND_TIMEOUT" envDefault:"30s"`

	// BatchSize is the maximum number of entries claimed per poll.
	BatchSize int `env:"NOTIFIER_BATCH_SIZE" envDefault:"10"`

	// Concurrency is the number of entries processed in parallel.
	Concurrency int `env:"NOTIFIER_CONCURRENCY" envDefault:"4"`

	// FanoutBuffer is the per-connection message buffer of the
	// real-time registry. Connections that fall this far behind are
	// dropped.
	FanoutBuffer int `env:"NOTIFIER_FANOUT_BUFFER" envDefault:"16"`

	// UnreadLimit caps the unread list pushed to real-time clients.
	UnreadLimit int `env:"NOTIFIER_UNREAD_LIMIT" envDefault:"50"`
}
