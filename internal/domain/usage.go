package domain

import "time"

// TokenUsage holds the token counters for one accounting event.
type TokenUsage struct {
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_tokens"`
	CacheReadTokens     int64 `json:"cache_read_tokens"`
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationTokens += other.CacheCreationTokens
	u.CacheReadTokens += other.CacheReadTokens
}

// TotalTokens returns input + output + cache tokens.
func (u TokenUsage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens + u.CacheCreationTokens + u.CacheReadTokens
}

// RateWindow is one quota window as reported by a vendor API.
type RateWindow struct {
	UsedFraction  float64   `json:"used_fraction"` // 0.0-1.0
	WindowMinutes int       `json:"window_minutes,omitempty"`
	ResetsAt      time.Time `json:"resets_at,omitzero"`
	ResetLabel    string    `json:"reset_label,omitempty"`
}

// RemainingFraction returns 1 - used.
func (w RateWindow) RemainingFraction() float64 {
	return 1.0 - w.UsedFraction
}

// Identity describes who the monitored account belongs to.
type Identity struct {
	Email        string `json:"email,omitempty"`
	Organization string `json:"organization,omitempty"`
	Plan         string `json:"plan,omitempty"`
}

// UsageSnapshot is the latest quota state fetched for one account.
type UsageSnapshot struct {
	Primary   *RateWindow           `json:"primary,omitempty"`
	Secondary *RateWindow           `json:"secondary,omitempty"`
	CarveOuts map[string]RateWindow `json:"carve_outs,omitempty"` // model-specific windows, e.g. "opus"
	Identity  Identity              `json:"identity"`
	FetchedAt time.Time             `json:"fetched_at"`
}

// Clone returns a deep copy safe to hand outside the store's lock.
func (s UsageSnapshot) Clone() UsageSnapshot {
	out := s
	if s.Primary != nil {
		w := *s.Primary
		out.Primary = &w
	}
	if s.Secondary != nil {
		w := *s.Secondary
		out.Secondary = &w
	}
	if s.CarveOuts != nil {
		m := make(map[string]RateWindow, len(s.CarveOuts))
		for k, v := range s.CarveOuts {
			m[k] = v
		}
		out.CarveOuts = m
	}
	return out
}

// Windows returns all present windows, primary first.
func (s UsageSnapshot) Windows() []RateWindow {
	var ws []RateWindow
	if s.Primary != nil {
		ws = append(ws, *s.Primary)
	}
	if s.Secondary != nil {
		ws = append(ws, *s.Secondary)
	}
	for _, w := range s.CarveOuts {
		ws = append(ws, w)
	}
	return ws
}

// MaxUsed returns the highest used fraction across all windows.
func (s UsageSnapshot) MaxUsed() float64 {
	max := 0.0
	for _, w := range s.Windows() {
		if w.UsedFraction > max {
			max = w.UsedFraction
		}
	}
	return max
}
