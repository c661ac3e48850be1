// Package retry implements the per-account exponential backoff that
// gates remote fetch attempts after failures.
package retry

import "time"

const (
	baseDelay     = 60 * time.Second
	maxDelay      = 600 * time.Second
	backoffFactor = 2
)

// State is one account's backoff state machine. The zero value is ready
// to use: no failures, always due.
type State struct {
	failures    uint32
	nextAttempt time.Time
}

// RecordSuccess resets the machine; the next attempt is immediately due.
func (s *State) RecordSuccess() {
	s.failures = 0
	s.nextAttempt = time.Time{}
}

// RecordFailure advances the failure count and schedules the next
// attempt. Returns the delay applied: 60s, 120s, 240s, ... capped at
// 600s.
func (s *State) RecordFailure(now time.Time) time.Duration {
	if s.failures < ^uint32(0) {
		s.failures++
	}
	delay := Delay(s.failures)
	s.nextAttempt = now.Add(delay)
	return delay
}

// IsDue reports whether a new attempt is allowed at now.
func (s *State) IsDue(now time.Time) bool {
	return !now.Before(s.nextAttempt)
}

// Failures returns the consecutive failure count.
func (s *State) Failures() uint32 {
	return s.failures
}

// InBackoff reports whether the last attempt failed.
func (s *State) InBackoff() bool {
	return s.failures > 0
}

// Delay computes the backoff delay after the given number of
// consecutive failures.
func Delay(failures uint32) time.Duration {
	if failures == 0 {
		return baseDelay
	}
	delay := baseDelay
	for i := uint32(1); i < failures; i++ {
		delay *= backoffFactor
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}
