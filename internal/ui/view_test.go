package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/Kabilan108/claude-bar/internal/domain"
	"github.com/Kabilan108/claude-bar/internal/store"
)

func TestBar(t *testing.T) {
	tests := []struct {
		fraction float64
		width    int
		want     string
	}{
		{0, 4, "░░░░"},
		{0.5, 4, "██░░"},
		{1, 4, "████"},
		{1.7, 4, "████"}, // overflow capped
		{-0.2, 4, "░░░░"},
	}
	for _, tt := range tests {
		if got := Bar(tt.fraction, tt.width); got != tt.want {
			t.Errorf("Bar(%f, %d) = %q, want %q", tt.fraction, tt.width, got, tt.want)
		}
	}
}

func TestFormatUntil(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Minute, "now"},
		{0, "now"},
		{30 * time.Minute, "30m"},
		{90 * time.Minute, "1h 30m"},
		{73 * time.Hour, "3d 1h"},
	}
	for _, tt := range tests {
		if got := FormatUntil(tt.d); got != tt.want {
			t.Errorf("FormatUntil(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestWindowLabel(t *testing.T) {
	tests := []struct {
		minutes  int
		fallback string
		want     string
	}{
		{0, "session", "session"},
		{30, "session", "30m window"},
		{300, "session", "5h window"},
		{10080, "weekly", "7d window"},
	}
	for _, tt := range tests {
		if got := windowLabel(tt.minutes, tt.fallback); got != tt.want {
			t.Errorf("windowLabel(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestRenderAccountShowsErrorWithStaleData(t *testing.T) {
	now := time.Date(2026, 1, 18, 12, 0, 0, 0, time.UTC)
	v := store.AccountView{
		Kind:  domain.AccountClaude,
		Error: "request timed out",
		Snapshot: &domain.UsageSnapshot{
			Primary: &domain.RateWindow{
				UsedFraction:  0.42,
				WindowMinutes: 300,
				ResetsAt:      now.Add(time.Hour),
			},
		},
		Cost: &domain.CostSnapshot{TodayTotal: 1.5, MonthToDateTotal: 20, Currency: "USD"},
	}

	out := renderAccount(v, now)
	for _, want := range []string{"Claude Code", "request timed out", "last known data", "42.0%", "$1.50"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderAccountWaiting(t *testing.T) {
	out := renderAccount(store.AccountView{Kind: domain.AccountCodex}, time.Now())
	if !strings.Contains(out, "waiting for data") {
		t.Errorf("output = %q", out)
	}
}
