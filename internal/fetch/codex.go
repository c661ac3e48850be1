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

// CodexUsageURL is the ChatGPT usage endpoint; var for tests.
var CodexUsageURL = "https://chatgpt.com/backend-api/wham/usage"

// CodexFetcher reads the Codex CLI auth file and queries the ChatGPT
// usage endpoint with it.
type CodexFetcher struct {
	credPath string
	log      *slog.Logger
}

// NewCodexFetcher creates a fetcher reading credentials from credPath,
// defaulting to $CODEX_HOME/auth.json, then ~/.codex/auth.json.
func NewCodexFetcher(credPath string, logger *slog.Logger) *CodexFetcher {
	if credPath == "" {
		if home := os.Getenv("CODEX_HOME"); home != "" {
			credPath = filepath.Join(home, "auth.json")
		} else if home, err := os.UserHomeDir(); err == nil {
			credPath = filepath.Join(home, ".codex", "auth.json")
		}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CodexFetcher{credPath: credPath, log: logger}
}

func (f *CodexFetcher) Kind() domain.AccountKind { return domain.AccountCodex }

type codexUsageResponse struct {
	PlanType  string `json:"plan_type"`
	RateLimit *struct {
		PrimaryWindow   *codexWindow `json:"primary_window"`
		SecondaryWindow *codexWindow `json:"secondary_window"`
	} `json:"rate_limit"`
}

type codexWindow struct {
	UsedPercent        float64 `json:"used_percent"`
	ResetAt            int64   `json:"reset_at"` // unix seconds
	LimitWindowSeconds int     `json:"limit_window_seconds"`
}

func (f *CodexFetcher) Fetch(ctx context.Context) (domain.UsageSnapshot, error) {
	token, accountID, err := f.loadCredentials()
	if err != nil {
		return domain.UsageSnapshot{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, CodexUsageURL, nil)
	if err != nil {
		return domain.UsageSnapshot{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if accountID != "" {
		req.Header.Set("ChatGPT-Account-Id", accountID)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return domain.UsageSnapshot{}, fmt.Errorf("fetch codex usage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		serr := &StatusError{Account: domain.AccountCodex, Code: resp.StatusCode}
		if serr.AuthFailure() {
			serr.Hint = "run `codex` to refresh credentials"
		}
		return domain.UsageSnapshot{}, serr
	}

	var body codexUsageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.UsageSnapshot{}, fmt.Errorf("decode codex usage response: %w", err)
	}

	snap := domain.UsageSnapshot{
		Identity:  domain.Identity{Plan: formatPlan(body.PlanType)},
		FetchedAt: time.Now(),
	}
	if rl := body.RateLimit; rl != nil {
		snap.Primary = codexRateWindow(rl.PrimaryWindow, "session")
		snap.Secondary = codexRateWindow(rl.SecondaryWindow, "weekly")
	}
	return snap, nil
}

func (f *CodexFetcher) loadCredentials() (token, accountID string, err error) {
	data, err := os.ReadFile(f.credPath)
	if err != nil {
		return "", "", fmt.Errorf("read codex credentials: %w", err)
	}
	var file struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
			AccountID   string `json:"account_id"`
		} `json:"tokens"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return "", "", fmt.Errorf("parse codex credentials: %w", err)
	}
	if file.Tokens.AccessToken == "" {
		return "", "", fmt.Errorf("codex access token is empty")
	}
	return file.Tokens.AccessToken, file.Tokens.AccountID, nil
}

func codexRateWindow(w *codexWindow, label string) *domain.RateWindow {
	if w == nil {
		return nil
	}
	out := &domain.RateWindow{
		UsedFraction:  w.UsedPercent / 100.0,
		WindowMinutes: w.LimitWindowSeconds / 60,
		ResetLabel:    label,
	}
	if w.ResetAt > 0 {
		out.ResetsAt = time.Unix(w.ResetAt, 0)
	}
	return out
}

func formatPlan(planType string) string {
	if planType == "" {
		return ""
	}
	switch strings.ToLower(planType) {
	case "plus":
		return "ChatGPT Plus"
	case "pro":
		return "ChatGPT Pro"
	case "team":
		return "ChatGPT Team"
	case "enterprise":
		return "ChatGPT Enterprise"
	case "free":
		return "ChatGPT Free"
	default:
		return "ChatGPT " + planType
	}
}
