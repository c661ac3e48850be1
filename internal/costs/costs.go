// Package costs turns scanned token usage into priced cost rollups.
// It owns each account's CostSnapshot and retains the previous rollup
// when a scan fails, so consumers keep seeing last-known-good numbers.
package costs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Kabilan108/claude-bar/internal/domain"
	"github.com/Kabilan108/claude-bar/internal/pricing"
	"github.com/Kabilan108/claude-bar/internal/scanner"
)

// trailingDays is how far before the month start the scan window
// reaches, so a full 30-day history is available early in a month.
const trailingDays = 30

// RefreshResult reports what a pricing refresh attempt did.
type RefreshResult int

const (
	// PricingRefreshed means a fresh document was fetched and merged.
	PricingRefreshed RefreshResult = iota
	// PricingSkipped means the current table is still fresh.
	PricingSkipped
	// PricingFailed means the fetch failed and the previous table stays
	// in effect.
	PricingFailed
)

// ScanResult is the outcome of scanning one account: either a new
// snapshot or the retained previous one plus the error that kept it.
type ScanResult struct {
	Snapshot domain.CostSnapshot
	Err      error
}

// Store orchestrates the log scanners against the pricing resolver.
type Store struct {
	scanners map[domain.AccountKind]scanner.Scanner
	resolver *pricing.Resolver
	loc      *time.Location
	log      *slog.Logger

	mu     sync.Mutex
	cached map[domain.AccountKind]domain.CostSnapshot

	now func() time.Time
}

// New creates a cost store over the given scanners. loc determines the
// local calendar used for day and month boundaries; nil means time.Local.
func New(scanners []scanner.Scanner, resolver *pricing.Resolver, loc *time.Location, logger *slog.Logger) *Store {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	byKind := make(map[domain.AccountKind]scanner.Scanner, len(scanners))
	for _, sc := range scanners {
		byKind[sc.Kind()] = sc
	}
	return &Store{
		scanners: byKind,
		resolver: resolver,
		loc:      loc,
		log:      logger,
		cached:   make(map[domain.AccountKind]domain.CostSnapshot),
		now:      time.Now,
	}
}

// RefreshPricing fetches a new pricing document unless the current
// table is still fresh. force bypasses the freshness check. A failed
// fetch keeps the previous table in effect and is reported, not fatal.
func (s *Store) RefreshPricing(ctx context.Context, force bool) (RefreshResult, error) {
	if !force && !s.resolver.NeedsRefresh() {
		s.log.Debug("pricing table is fresh, skipping refresh")
		return PricingSkipped, nil
	}
	if err := s.resolver.Refresh(ctx); err != nil {
		s.log.Warn("pricing refresh failed, keeping previous table", "error", err)
		return PricingFailed, err
	}
	s.log.Info("pricing table refreshed")
	return PricingRefreshed, nil
}

// ScanAll scans every account concurrently and returns the per-account
// outcome. One account's failure never disturbs another's result.
func (s *Store) ScanAll(ctx context.Context) map[domain.AccountKind]ScanResult {
	kinds := make([]domain.AccountKind, 0, len(s.scanners))
	for kind := range s.scanners {
		kinds = append(kinds, kind)
	}

	results := make([]ScanResult, len(kinds))
	g, _ := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			snap, err := s.ScanOne(kind)
			results[i] = ScanResult{Snapshot: snap, Err: err}
			return nil
		})
	}
	g.Wait()

	out := make(map[domain.AccountKind]ScanResult, len(kinds))
	for i, kind := range kinds {
		out[kind] = results[i]
	}
	return out
}

// ScanOne scans a single account over the trailing window and prices
// the result. On failure the previously cached snapshot is returned
// alongside the error.
func (s *Store) ScanOne(kind domain.AccountKind) (domain.CostSnapshot, error) {
	sc, ok := s.scanners[kind]
	if !ok {
		return domain.CostSnapshot{}, nil
	}

	// Calendar boundaries are re-derived on every scan so a rollover
	// at midnight or on the 1st takes effect without restart.
	today, monthStart, since := s.window()

	usage, err := sc.Scan(since, today)
	if err != nil {
		s.log.Warn("cost scan failed, keeping previous rollup",
			"account", kind, "error", err)
		s.mu.Lock()
		prev := s.cached[kind]
		s.mu.Unlock()
		return prev, err
	}

	snap := s.price(usage, today, monthStart)

	s.mu.Lock()
	s.cached[kind] = snap
	s.mu.Unlock()
	return snap, nil
}

// Cached returns the last computed snapshot for an account, if any.
func (s *Store) Cached(kind domain.AccountKind) (domain.CostSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.cached[kind]
	return snap.Clone(), ok
}

// window returns today, the first day of the month, and the scan start
// (month start minus trailingDays), all as DateFormat strings in loc.
func (s *Store) window() (today, monthStart, since string) {
	now := s.now().In(s.loc)
	today = now.Format(domain.DateFormat)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	monthStart = first.Format(domain.DateFormat)
	since = first.AddDate(0, 0, -trailingDays).Format(domain.DateFormat)
	return today, monthStart, since
}

// price turns scanned usage into a rollup. Models the resolver cannot
// price contribute zero and are logged at debug.
func (s *Store) price(usage []domain.DailyUsage, today, monthStart string) domain.CostSnapshot {
	snap := domain.CostSnapshot{Currency: "USD", ScannedAt: s.now()}
	for _, u := range usage {
		p, ok := s.resolver.Resolve(u.Model)
		if !ok {
			s.log.Debug("no pricing for model", "model", u.Model)
			continue
		}
		cost := p.Cost(u.Tokens)

		// ISO date strings compare correctly lexically.
		if u.Date >= monthStart && u.Date <= today {
			snap.Daily = append(snap.Daily, domain.DailyCost{
				Date:  u.Date,
				Model: u.Model,
				Cost:  cost,
			})
			snap.MonthToDateTotal += cost
		}
		if u.Date == today {
			snap.TodayTotal += cost
		}
	}
	snap.TodayTotal = normalizeTotal(snap.TodayTotal)
	snap.MonthToDateTotal = normalizeTotal(snap.MonthToDateTotal)
	return snap
}

// normalizeTotal snaps sub-cent totals to zero so accumulated float
// noise never renders as "$0.00" with a nonzero tail.
func normalizeTotal(v float64) float64 {
	if v < 0.005 && v > -0.005 {
		return 0
	}
	return v
}
