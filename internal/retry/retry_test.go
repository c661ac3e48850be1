package retry

import (
	"testing"
	"time"
)

func TestZeroStateIsDue(t *testing.T) {
	var s State
	if !s.IsDue(time.Now()) {
		t.Error("zero state should be due")
	}
	if s.InBackoff() {
		t.Error("zero state should not be in backoff")
	}
}

func TestBackoffSequence(t *testing.T) {
	var s State
	now := time.Date(2026, 1, 18, 12, 0, 0, 0, time.UTC)

	want := []time.Duration{
		60 * time.Second,
		120 * time.Second,
		240 * time.Second,
		480 * time.Second,
		600 * time.Second, // capped
	}
	for i, w := range want {
		if got := s.RecordFailure(now); got != w {
			t.Errorf("failure %d: delay = %v, want %v", i+1, got, w)
		}
	}
	if s.Failures() != 5 {
		t.Errorf("Failures = %d, want 5", s.Failures())
	}
}

func TestDelayCapHolds(t *testing.T) {
	var s State
	now := time.Now()
	for i := 0; i < 50; i++ {
		s.RecordFailure(now)
	}
	if got := Delay(s.Failures()); got != 600*time.Second {
		t.Errorf("Delay = %v, want 600s cap", got)
	}
}

func TestIsDueRespectsNextAttempt(t *testing.T) {
	var s State
	now := time.Date(2026, 1, 18, 12, 0, 0, 0, time.UTC)
	s.RecordFailure(now)

	if s.IsDue(now.Add(59 * time.Second)) {
		t.Error("should not be due before the delay elapses")
	}
	if !s.IsDue(now.Add(60 * time.Second)) {
		t.Error("should be due exactly at next attempt time")
	}
}

func TestSuccessResets(t *testing.T) {
	var s State
	now := time.Now()
	s.RecordFailure(now)
	s.RecordFailure(now)
	s.RecordFailure(now)

	s.RecordSuccess()
	if s.Failures() != 0 || s.InBackoff() {
		t.Error("success should reset the machine")
	}
	if !s.IsDue(now) {
		t.Error("reset machine should be immediately due")
	}
}

func TestIndependentStates(t *testing.T) {
	var a, b State
	now := time.Now()
	a.RecordFailure(now)

	if !b.IsDue(now) {
		t.Error("one account's backoff must not throttle another")
	}
}
