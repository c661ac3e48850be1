package store

import "github.com/Kabilan108/claude-bar/internal/domain"

// EventKind enumerates the change events the store publishes.
type EventKind int

const (
	UsageUpdated EventKind = iota
	CostUpdated
	ErrorOccurred
	ErrorCleared
)

func (k EventKind) String() string {
	switch k {
	case UsageUpdated:
		return "usage_updated"
	case CostUpdated:
		return "cost_updated"
	case ErrorOccurred:
		return "error_occurred"
	case ErrorCleared:
		return "error_cleared"
	default:
		return "unknown"
	}
}

// Event is one change notification. Consumers that fall behind may miss
// intermediate events but always see the latest state on next read.
type Event struct {
	Kind    EventKind
	Account domain.AccountKind
}
