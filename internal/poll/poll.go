// Package poll drives the periodic work of the engine: per-account
// quota fetches gated by the retry controller, cost scans, and pricing
// refreshes. All I/O happens here, never under the store's lock.
package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Kabilan108/claude-bar/internal/costs"
	"github.com/Kabilan108/claude-bar/internal/domain"
	"github.com/Kabilan108/claude-bar/internal/fetch"
	"github.com/Kabilan108/claude-bar/internal/store"
)

// Options tunes the scheduler intervals. Zero values take defaults.
type Options struct {
	PollInterval    time.Duration // quota fetch cadence, default 60s
	ScanInterval    time.Duration // cost scan cadence, default 5m
	PricingInterval time.Duration // pricing refresh check cadence, default 1h
	Cooldown        time.Duration // manual refresh rate limit, default 5s

	// Notify receives threshold crossings popped from the store, at
	// most once per reset cycle. Nil disables delivery.
	Notify func(kind domain.AccountKind, fraction float64)
}

// Scheduler owns one fetch loop per account plus a shared scan loop and
// a pricing refresh loop.
type Scheduler struct {
	store    *store.Store
	costs    *costs.Store
	fetchers map[domain.AccountKind]fetch.Fetcher
	opts     Options
	log      *slog.Logger

	fetchTriggers map[domain.AccountKind]chan struct{}
	scanTriggers  chan domain.AccountKind

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(st *store.Store, cs *costs.Store, fetchers []fetch.Fetcher, opts Options, logger *slog.Logger) *Scheduler {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 60 * time.Second
	}
	if opts.ScanInterval <= 0 {
		opts.ScanInterval = 5 * time.Minute
	}
	if opts.PricingInterval <= 0 {
		opts.PricingInterval = time.Hour
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 5 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	byKind := make(map[domain.AccountKind]fetch.Fetcher, len(fetchers))
	triggers := make(map[domain.AccountKind]chan struct{}, len(fetchers))
	for _, f := range fetchers {
		byKind[f.Kind()] = f
		triggers[f.Kind()] = make(chan struct{}, 1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:         st,
		costs:         cs,
		fetchers:      byKind,
		opts:          opts,
		log:           logger,
		fetchTriggers: triggers,
		scanTriggers:  make(chan domain.AccountKind, 8),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start runs an immediate pricing refresh, fetch, and scan, then the
// periodic loops. Returns once the initial round is dispatched.
func (s *Scheduler) Start() {
	// Pricing first so the initial scan prices with the freshest table
	// available; a failure falls back to the cached/default table.
	s.costs.RefreshPricing(s.ctx, false)

	for kind := range s.fetchers {
		s.wg.Add(1)
		go s.fetchLoop(kind)
	}
	s.wg.Add(1)
	go s.scanLoop()
	s.wg.Add(1)
	go s.pricingLoop()
}

// Stop cancels in-flight work and waits for the loops to exit.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// TriggerRefresh requests an immediate fetch for one account, subject
// to the cooldown and the retry backoff. Non-blocking.
func (s *Scheduler) TriggerRefresh(kind domain.AccountKind) {
	ch, ok := s.fetchTriggers[kind]
	if !ok {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

// TriggerRefreshAll requests an immediate fetch for every account.
func (s *Scheduler) TriggerRefreshAll() {
	for kind := range s.fetchTriggers {
		s.TriggerRefresh(kind)
	}
}

// TriggerScan requests an early cost rescan for one account, typically
// from the log watcher. Non-blocking.
func (s *Scheduler) TriggerScan(kind domain.AccountKind) {
	select {
	case s.scanTriggers <- kind:
	default:
	}
}

func (s *Scheduler) fetchLoop(kind domain.AccountKind) {
	defer s.wg.Done()

	// Initial fetch on startup.
	s.fetchOnce(kind)

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if s.store.FetchDue(kind) {
				s.fetchOnce(kind)
			}
		case <-s.fetchTriggers[kind]:
			if s.store.ShouldRefresh(kind, s.opts.Cooldown) && s.store.FetchDue(kind) {
				s.fetchOnce(kind)
			}
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) fetchOnce(kind domain.AccountKind) {
	f, ok := s.fetchers[kind]
	if !ok {
		return
	}
	snap, err := f.Fetch(s.ctx)
	if err != nil {
		delay := s.store.SetError(kind, err.Error())
		s.log.Warn("quota fetch failed", "account", kind, "error", err, "retry_in", delay)
		return
	}
	s.store.UpdateSnapshot(kind, snap)
	s.deliverNotification(kind)
}

func (s *Scheduler) deliverNotification(kind domain.AccountKind) {
	if s.opts.Notify == nil {
		return
	}
	if frac, ok := s.store.PendingNotification(kind); ok {
		s.opts.Notify(kind, frac)
	}
}

func (s *Scheduler) scanLoop() {
	defer s.wg.Done()

	s.scanAll()

	ticker := time.NewTicker(s.opts.ScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.scanAll()
		case kind := <-s.scanTriggers:
			s.scanOne(kind)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) scanAll() {
	for kind, res := range s.costs.ScanAll(s.ctx) {
		s.applyScan(kind, res.Snapshot, res.Err)
	}
}

func (s *Scheduler) scanOne(kind domain.AccountKind) {
	snap, err := s.costs.ScanOne(kind)
	s.applyScan(kind, snap, err)
}

func (s *Scheduler) applyScan(kind domain.AccountKind, snap domain.CostSnapshot, err error) {
	if err != nil {
		s.store.SetError(kind, err.Error())
		return
	}
	s.store.UpdateCost(kind, snap)
}

func (s *Scheduler) pricingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.PricingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			// RefreshPricing skips on its own when the table is fresh.
			s.costs.RefreshPricing(s.ctx, false)
		case <-s.ctx.Done():
			return
		}
	}
}
