// Package store holds the latest usage, cost, and error state per
// account behind a reader-writer lock. Producers take the write lock
// only for the final update of an operation, never across network or
// disk I/O; the tray, popup, and IPC consumers read concurrently.
package store

import (
	"sync"
	"time"

	"github.com/Kabilan108/claude-bar/internal/domain"
	"github.com/Kabilan108/claude-bar/internal/retry"
)

// subscriberBuffer is the event queue depth per subscriber; events to a
// full queue are dropped.
const subscriberBuffer = 16

// notifyState is the per-account threshold notification machine: Below
// until a window crosses the threshold, then Notified until that
// window's reset is observed in the data.
type notifyState struct {
	notified   bool
	resetAt    time.Time
	resetLabel string
}

type accountState struct {
	snapshot  *domain.UsageSnapshot
	cost      *domain.CostSnapshot
	errText   string
	lastFetch time.Time
	retry     retry.State
	notify    notifyState

	pendingFraction float64
	hasPending      bool
}

// Store is the single shared mutable resource of the engine. Construct
// one at startup and pass it by reference; there are no ambient
// statics.
type Store struct {
	mu       sync.RWMutex
	order    []domain.AccountKind
	accounts map[domain.AccountKind]*accountState

	subs      map[int]chan Event
	nextSubID int

	threshold float64
	now       func() time.Time
}

// New creates a store with one entry per configured account. threshold
// is the notification-eligible used fraction; zero disables
// notifications.
func New(kinds []domain.AccountKind, threshold float64) *Store {
	s := &Store{
		order:     append([]domain.AccountKind(nil), kinds...),
		accounts:  make(map[domain.AccountKind]*accountState, len(kinds)),
		subs:      make(map[int]chan Event),
		threshold: threshold,
		now:       time.Now,
	}
	for _, k := range kinds {
		s.accounts[k] = &accountState{}
	}
	return s
}

// Accounts returns the configured account kinds in display order.
func (s *Store) Accounts() []domain.AccountKind {
	return append([]domain.AccountKind(nil), s.order...)
}

// Snapshot returns the last fetched quota snapshot for an account.
func (s *Store) Snapshot(kind domain.AccountKind) (domain.UsageSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.accounts[kind]
	if !ok || st.snapshot == nil {
		return domain.UsageSnapshot{}, false
	}
	return st.snapshot.Clone(), true
}

// Cost returns the last cost rollup for an account.
func (s *Store) Cost(kind domain.AccountKind) (domain.CostSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.accounts[kind]
	if !ok || st.cost == nil {
		return domain.CostSnapshot{}, false
	}
	return st.cost.Clone(), true
}

// Error returns the current error text for an account, if any.
func (s *Store) Error(kind domain.AccountKind) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.accounts[kind]
	if !ok || st.errText == "" {
		return "", false
	}
	return st.errText, true
}

// UpdateSnapshot replaces the quota snapshot after a successful fetch.
// Any standing error is cleared (emitting ErrorCleared immediately
// before UsageUpdated, so consumers never observe a no-error/no-data
// gap), the retry machine resets, and the notification machine
// re-evaluates against the new data.
func (s *Store) UpdateSnapshot(kind domain.AccountKind, snap domain.UsageSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.accounts[kind]
	if !ok {
		return
	}

	hadError := st.errText != ""
	st.errText = ""
	st.snapshot = &snap
	st.lastFetch = s.now()
	st.retry.RecordSuccess()
	s.evaluateNotify(st, snap)

	if hadError {
		s.emit(Event{Kind: ErrorCleared, Account: kind})
	}
	s.emit(Event{Kind: UsageUpdated, Account: kind})
}

// UpdateCost replaces the cost rollup after a successful scan.
func (s *Store) UpdateCost(kind domain.AccountKind, cost domain.CostSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.accounts[kind]
	if !ok {
		return
	}
	st.cost = &cost
	s.emit(Event{Kind: CostUpdated, Account: kind})
}

// SetError records a fetch or scan failure. The previous snapshot and
// cost stay visible alongside the error, and the retry machine advances.
// Returns the backoff delay now in effect.
func (s *Store) SetError(kind domain.AccountKind, message string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.accounts[kind]
	if !ok {
		return 0
	}
	st.errText = message
	delay := st.retry.RecordFailure(s.now())
	s.emit(Event{Kind: ErrorOccurred, Account: kind})
	return delay
}

// ShouldRefresh rate-limits user-triggered refreshes: true iff the last
// fetch is older than cooldown (or never happened).
func (s *Store) ShouldRefresh(kind domain.AccountKind, cooldown time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.accounts[kind]
	if !ok {
		return false
	}
	return st.lastFetch.IsZero() || s.now().Sub(st.lastFetch) >= cooldown
}

// FetchDue reports whether the retry controller allows a fetch attempt.
func (s *Store) FetchDue(kind domain.AccountKind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.accounts[kind]
	if !ok {
		return false
	}
	return st.retry.IsDue(s.now())
}

// PendingNotification pops the notification-eligible crossing for an
// account: the used fraction that crossed the threshold, at most once
// per reset cycle.
func (s *Store) PendingNotification(kind domain.AccountKind) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.accounts[kind]
	if !ok || !st.hasPending {
		return 0, false
	}
	st.hasPending = false
	return st.pendingFraction, true
}

// Subscribe registers a change-event consumer. The returned cancel
// function unregisters it and closes the channel.
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Event, subscriberBuffer)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// emit delivers an event to every subscriber without blocking; a full
// subscriber queue drops the event. Callers hold the write lock, which
// keeps per-account event order intact.
func (s *Store) emit(ev Event) {
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// evaluateNotify advances the threshold machine against a fresh
// snapshot. Returning to Below is driven by the observed data -- the
// remembered reset timestamp now lies in the past, or the window's
// reset marker changed -- never by a wall-clock timer alone.
func (s *Store) evaluateNotify(st *accountState, snap domain.UsageSnapshot) {
	if s.threshold <= 0 {
		return
	}

	n := &st.notify
	if n.notified && s.windowHasReset(snap, n) {
		n.notified = false
	}
	if !n.notified && snap.MaxUsed() >= s.threshold {
		w := hottestWindow(snap)
		n.notified = true
		n.resetAt = w.ResetsAt
		n.resetLabel = w.ResetLabel
		st.pendingFraction = snap.MaxUsed()
		st.hasPending = true
	}
}

func (s *Store) windowHasReset(snap domain.UsageSnapshot, n *notifyState) bool {
	if !n.resetAt.IsZero() && s.now().After(n.resetAt) {
		return true
	}
	// Reset marker changed: the window we notified for now reports a
	// different resets_at, or disappeared entirely.
	for _, w := range snap.Windows() {
		if w.ResetLabel == n.resetLabel {
			return !w.ResetsAt.Equal(n.resetAt)
		}
	}
	return true
}

// hottestWindow returns the window with the highest used fraction.
func hottestWindow(snap domain.UsageSnapshot) domain.RateWindow {
	var best domain.RateWindow
	first := true
	for _, w := range snap.Windows() {
		if first || w.UsedFraction > best.UsedFraction {
			best = w
			first = false
		}
	}
	return best
}
