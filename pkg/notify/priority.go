package notify

import "strings"

// Priority is the single priority type used by templates, queue entries and
// notifications. Higher values are claimed first when the queue is
// backlogged.
type Priority int8

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// PriorityDefault is used wherever a caller does not specify a priority.
const PriorityDefault = PriorityNormal

// Valid reports whether p is within the defined range.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "normal"
	}
}

// ParsePriority is the canonical normalization for priority strings coming
// from stored templates, API callers or event payloads. Unknown or empty
// input maps to PriorityNormal rather than failing: a mistyped priority
// must not prevent delivery.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	case "urgent", "critical":
		return PriorityUrgent
	default:
		return PriorityNormal
	}
}
