// Package fetch retrieves quota snapshots from the vendor usage APIs.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Kabilan108/claude-bar/internal/domain"
)

const requestTimeout = 30 * time.Second

var httpClient = &http.Client{Timeout: requestTimeout}

// Fetcher fetches the current usage snapshot for one account.
type Fetcher interface {
	Kind() domain.AccountKind
	Fetch(ctx context.Context) (domain.UsageSnapshot, error)
}

// StatusError is a non-2xx response from a vendor API. Callers use the
// status class to tell auth failures from transient server errors; both
// feed the same retry path.
type StatusError struct {
	Account domain.AccountKind
	Code    int
	Hint    string
}

func (e *StatusError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s api returned status %d: %s", e.Account, e.Code, e.Hint)
	}
	return fmt.Sprintf("%s api returned status %d", e.Account, e.Code)
}

// AuthFailure reports whether the status indicates bad or expired
// credentials rather than a transient server problem.
func (e *StatusError) AuthFailure() bool {
	return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
}

// All returns a fetcher per configured account kind. Unknown kinds are
// skipped.
func All(kinds []domain.AccountKind, logger *slog.Logger) []Fetcher {
	var out []Fetcher
	for _, k := range kinds {
		switch k {
		case domain.AccountClaude:
			out = append(out, NewClaudeFetcher("", logger))
		case domain.AccountCodex:
			out = append(out, NewCodexFetcher("", logger))
		}
	}
	return out
}
