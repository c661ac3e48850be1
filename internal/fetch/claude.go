package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Kabilan108/claude-bar/internal/domain"
)

// ClaudeUsageURL is the OAuth usage endpoint; var for tests.
var ClaudeUsageURL = "https://api.anthropic.com/api/oauth/usage"

const anthropicBeta = "oauth-2025-04-20"

// ClaudeFetcher reads the Claude Code OAuth credential file and queries
// the usage endpoint with it.
type ClaudeFetcher struct {
	credPath string
	log      *slog.Logger
}

// NewClaudeFetcher creates a fetcher reading credentials from credPath,
// defaulting to ~/.claude/.credentials.json.
func NewClaudeFetcher(credPath string, logger *slog.Logger) *ClaudeFetcher {
	if credPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			credPath = filepath.Join(home, ".claude", ".credentials.json")
		}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ClaudeFetcher{credPath: credPath, log: logger}
}

func (f *ClaudeFetcher) Kind() domain.AccountKind { return domain.AccountClaude }

type claudeCredentials struct {
	AccessToken   string `json:"accessToken"`
	ExpiresAt     int64  `json:"expiresAt"` // unix millis
	RateLimitTier string `json:"rateLimitTier"`
}

type claudeUsageResponse struct {
	FiveHour       *claudeWindow `json:"five_hour"`
	SevenDay       *claudeWindow `json:"seven_day"`
	SevenDaySonnet *claudeWindow `json:"seven_day_sonnet"`
	SevenDayOpus   *claudeWindow `json:"seven_day_opus"`
}

type claudeWindow struct {
	Utilization *float64 `json:"utilization"` // 0-100 percentage
	ResetsAt    string   `json:"resets_at"`   // RFC 3339
}

// Fetch queries the usage endpoint. Credential problems (missing file,
// empty token, expired token) fail before any network call.
func (f *ClaudeFetcher) Fetch(ctx context.Context) (domain.UsageSnapshot, error) {
	token, tier, err := f.loadCredentials()
	if err != nil {
		return domain.UsageSnapshot{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ClaudeUsageURL, nil)
	if err != nil {
		return domain.UsageSnapshot{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("anthropic-beta", anthropicBeta)

	resp, err := httpClient.Do(req)
	if err != nil {
		return domain.UsageSnapshot{}, fmt.Errorf("fetch claude usage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		serr := &StatusError{Account: domain.AccountClaude, Code: resp.StatusCode}
		if serr.AuthFailure() {
			serr.Hint = "run `claude` to refresh credentials"
		}
		return domain.UsageSnapshot{}, serr
	}

	var body claudeUsageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.UsageSnapshot{}, fmt.Errorf("decode claude usage response: %w", err)
	}

	snap := domain.UsageSnapshot{
		Primary:   f.window(body.FiveHour, 300, "5h"),
		Secondary: f.window(body.SevenDay, 10080, "7d"),
		Identity:  domain.Identity{Plan: planFromTier(tier)},
		FetchedAt: time.Now(),
	}
	if w := f.window(body.SevenDaySonnet, 10080, "sonnet-7d"); w != nil {
		snap.CarveOuts = map[string]domain.RateWindow{"sonnet": *w}
	}
	if w := f.window(body.SevenDayOpus, 10080, "opus-7d"); w != nil {
		if snap.CarveOuts == nil {
			snap.CarveOuts = make(map[string]domain.RateWindow, 1)
		}
		snap.CarveOuts["opus"] = *w
	}
	return snap, nil
}

func (f *ClaudeFetcher) loadCredentials() (token, tier string, err error) {
	data, err := os.ReadFile(f.credPath)
	if err != nil {
		return "", "", fmt.Errorf("read claude credentials: %w", err)
	}
	var file struct {
		ClaudeAiOauth claudeCredentials `json:"claudeAiOauth"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return "", "", fmt.Errorf("parse claude credentials: %w", err)
	}
	creds := file.ClaudeAiOauth
	if creds.AccessToken == "" {
		return "", "", fmt.Errorf("claude access token is empty")
	}
	// A token within a minute of expiry is treated as expired; the CLI
	// owns the refresh flow, we just wait for it.
	if creds.ExpiresAt > 0 && time.Now().UnixMilli() >= creds.ExpiresAt-60_000 {
		return "", "", fmt.Errorf("claude token expired, waiting for refresh")
	}
	return creds.AccessToken, creds.RateLimitTier, nil
}

// window maps one API window to a RateWindow; nil when the window or
// its utilization is absent. Malformed reset timestamps are dropped,
// not fatal.
func (f *ClaudeFetcher) window(w *claudeWindow, minutes int, label string) *domain.RateWindow {
	if w == nil || w.Utilization == nil {
		return nil
	}
	out := &domain.RateWindow{
		UsedFraction:  *w.Utilization / 100.0,
		WindowMinutes: minutes,
		ResetLabel:    label,
	}
	if w.ResetsAt != "" {
		ts, err := time.Parse(time.RFC3339, w.ResetsAt)
		if err != nil {
			f.log.Warn("bad reset timestamp", "value", w.ResetsAt, "error", err)
		} else {
			out.ResetsAt = ts
		}
	}
	return out
}

func planFromTier(tier string) string {
	tier = strings.ToLower(tier)
	switch {
	case strings.Contains(tier, "max"):
		return "Claude Max"
	case strings.Contains(tier, "enterprise"):
		return "Claude Enterprise"
	case strings.Contains(tier, "team"):
		return "Claude Team"
	case strings.Contains(tier, "pro"):
		return "Claude Pro"
	default:
		return ""
	}
}
