package store

import (
	"time"

	"github.com/Kabilan108/claude-bar/internal/domain"
)

// AccountView is a read-only copy of one account's state, safe to hand
// to renderers and serializers.
type AccountView struct {
	Kind      domain.AccountKind    `json:"account"`
	Snapshot  *domain.UsageSnapshot `json:"usage,omitempty"`
	Cost      *domain.CostSnapshot  `json:"cost,omitempty"`
	Error     string                `json:"error,omitempty"`
	LastFetch time.Time             `json:"last_fetch,omitzero"`
	InBackoff bool                  `json:"in_backoff,omitempty"`
	Failures  uint32                `json:"consecutive_failures,omitempty"`
}

// View returns a copy of one account's state.
func (s *Store) View(kind domain.AccountKind) (AccountView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.accounts[kind]
	if !ok {
		return AccountView{}, false
	}
	return viewOf(kind, st), true
}

// Views returns copies of every account's state in display order.
func (s *Store) Views() []AccountView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	views := make([]AccountView, 0, len(s.order))
	for _, kind := range s.order {
		views = append(views, viewOf(kind, s.accounts[kind]))
	}
	return views
}

func viewOf(kind domain.AccountKind, st *accountState) AccountView {
	v := AccountView{
		Kind:      kind,
		Error:     st.errText,
		LastFetch: st.lastFetch,
		InBackoff: st.retry.InBackoff(),
		Failures:  st.retry.Failures(),
	}
	if st.snapshot != nil {
		snap := st.snapshot.Clone()
		v.Snapshot = &snap
	}
	if st.cost != nil {
		cost := st.cost.Clone()
		v.Cost = &cost
	}
	return v
}
