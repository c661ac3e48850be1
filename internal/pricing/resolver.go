package pricing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// PricingURL is the remote pricing document. Exported so tests can
// override it via httptest.
var PricingURL = "https://raw.githubusercontent.com/BerriAI/litellm/main/model_prices_and_context_window.json"

const refreshInterval = 24 * time.Hour

// httpClient is shared across refreshes with sensible timeouts.
var httpClient = &http.Client{
	Timeout: 15 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:    5,
		IdleConnTimeout: 30 * time.Second,
	},
}

// Resolver maintains the in-memory price table and its three-stage
// source chain: remote fetch, on-disk cache, compiled-in defaults.
// Once a table has been obtained from fetch or cache it stays valid
// indefinitely; prices change rarely.
type Resolver struct {
	mu        sync.RWMutex
	table     Table
	cachePath string
	lastFetch time.Time
	fetched   bool // table came from fetch or cache, not just defaults
	log       *slog.Logger
}

// DefaultCachePath returns the per-user pricing cache file.
func DefaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".cache", "claude-bar", "pricing.json")
	}
	return filepath.Join(dir, "claude-bar", "pricing.json")
}

// NewResolver loads the compiled-in defaults, overlaid with the cache
// file when one exists.
func NewResolver(cachePath string, logger *slog.Logger) (*Resolver, error) {
	table, err := LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("load default pricing: %w", err)
	}

	r := &Resolver{
		table:     table,
		cachePath: cachePath,
		log:       logger,
	}

	if data, err := os.ReadFile(cachePath); err == nil {
		if cached, err := ParseDocument(data); err == nil {
			r.table.Merge(cached)
			r.fetched = true
			if info, err := os.Stat(cachePath); err == nil {
				r.lastFetch = info.ModTime()
			}
			logger.Debug("loaded pricing cache", "path", cachePath, "models", len(cached))
		} else {
			logger.Warn("ignoring corrupt pricing cache", "path", cachePath, "error", err)
		}
	}

	return r, nil
}

// Resolve returns pricing for a model identifier, or false on a total
// lookup miss.
func (r *Resolver) Resolve(model string) (ModelPricing, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table.Lookup(model)
}

// NeedsRefresh reports whether Refresh should bother the network.
func (r *Resolver) NeedsRefresh() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.fetched || time.Since(r.lastFetch) > refreshInterval
}

// Refresh fetches the remote pricing document, merges it over the
// current table, and overwrites the cache file. On any failure the
// in-memory table is left untouched: the previous fetch, the cache
// load, or the defaults keep serving lookups.
func (r *Resolver) Refresh(ctx context.Context) error {
	fetched, err := fetchDocument(ctx)
	if err != nil {
		r.log.Warn("pricing refresh failed, keeping current table", "error", err)
		return err
	}

	r.mu.Lock()
	r.table.Merge(fetched)
	r.fetched = true
	r.lastFetch = time.Now()
	snapshot := make(Table, len(r.table))
	for k, v := range r.table {
		snapshot[k] = v
	}
	r.mu.Unlock()

	if err := r.saveCache(snapshot); err != nil {
		r.log.Warn("failed to write pricing cache", "path", r.cachePath, "error", err)
	}
	r.log.Info("refreshed pricing", "models", len(fetched))
	return nil
}

func (r *Resolver) saveCache(table Table) error {
	data, err := EncodeDocument(table)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.cachePath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(r.cachePath, data, 0o600)
}

// fetchDocument retrieves and parses the remote pricing document,
// keeping only the model families we meter.
func fetchDocument(ctx context.Context) (Table, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, PricingURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch pricing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pricing fetch: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read pricing response: %w", err)
	}

	table, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return filterKnownFamilies(table), nil
}

// filterKnownFamilies drops provider-prefixed duplicates and models
// outside the metered families.
func filterKnownFamilies(table Table) Table {
	out := make(Table)
	for key, mp := range table {
		if strings.ContainsRune(key, '/') {
			continue
		}
		if !meteredFamily(key) {
			continue
		}
		out[key] = mp
	}
	return out
}

func meteredFamily(key string) bool {
	for _, prefix := range []string{"claude-", "gpt-", "o1", "o3", "o4"} {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
