package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Kabilan108/claude-bar/internal/config"
	"github.com/Kabilan108/claude-bar/internal/costs"
	"github.com/Kabilan108/claude-bar/internal/domain"
	"github.com/Kabilan108/claude-bar/internal/fetch"
	"github.com/Kabilan108/claude-bar/internal/poll"
	"github.com/Kabilan108/claude-bar/internal/pricing"
	"github.com/Kabilan108/claude-bar/internal/scanner"
	"github.com/Kabilan108/claude-bar/internal/store"
	"github.com/Kabilan108/claude-bar/internal/ui"
	"github.com/Kabilan108/claude-bar/internal/watcher"
)

// version is set by goreleaser via ldflags.
var version = "dev"

func main() {
	var (
		configPath  = flag.String("config", config.DefaultPath(), "config file path")
		oneShot     = flag.Bool("json", false, "fetch and scan once, print JSON status, exit")
		timezone    = flag.String("timezone", "", "override timezone (e.g., Asia/Seoul)")
		verbose     = flag.Bool("verbose", false, "log to stderr (one-shot mode only)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("claude-bar", version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *timezone != "" {
		cfg.General.Timezone = *timezone
	}

	loc := time.Local
	if cfg.General.Timezone != "" {
		loc, err = time.LoadLocation(cfg.General.Timezone)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid timezone: %s\n", cfg.General.Timezone)
			os.Exit(1)
		}
	}

	// Logs go to stderr only where they cannot corrupt the TUI.
	logger := slog.New(slog.DiscardHandler)
	if *oneShot && *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	kinds := cfg.EnabledKinds()
	if len(kinds) == 0 {
		fmt.Fprintln(os.Stderr, "No accounts enabled in config")
		os.Exit(1)
	}

	resolver, err := pricing.NewResolver(pricing.DefaultCachePath(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading pricing: %v\n", err)
		os.Exit(1)
	}

	var scanners []scanner.Scanner
	scanRoots := make(map[domain.AccountKind][]string)
	for _, kind := range kinds {
		switch kind {
		case domain.AccountClaude:
			sc := scanner.NewClaudeScanner(cfg.LogRoots(kind), loc, logger)
			scanners = append(scanners, sc)
			scanRoots[kind] = sc.Roots()
		case domain.AccountCodex:
			sc := scanner.NewCodexScanner(cfg.LogRoots(kind), loc, logger)
			scanners = append(scanners, sc)
			scanRoots[kind] = sc.Roots()
		}
	}

	costStore := costs.New(scanners, resolver, loc, logger)

	threshold := 0.0
	if cfg.Notifications.Enabled {
		threshold = cfg.Notifications.Threshold
	}
	st := store.New(kinds, threshold)
	fetchers := fetch.All(kinds, logger)

	if *oneShot {
		runOneShot(st, costStore, fetchers)
		return
	}

	sched := poll.New(st, costStore, fetchers, poll.Options{
		PollInterval: time.Duration(cfg.General.PollInterval) * time.Second,
		ScanInterval: time.Duration(cfg.General.ScanInterval) * time.Second,
		Cooldown:     time.Duration(cfg.General.Cooldown) * time.Second,
		Notify: func(kind domain.AccountKind, fraction float64) {
			logger.Info("usage threshold crossed",
				"account", kind, "used", fmt.Sprintf("%.0f%%", fraction*100))
		},
	}, logger)
	sched.Start()
	defer sched.Stop()

	w := watcher.New(scanRoots, 30*time.Second, sched.TriggerScan, logger)
	w.InitialScan()
	if err := w.Start(); err != nil {
		logger.Warn("log watcher failed to start", "error", err)
	} else {
		defer w.Stop()
	}

	p := tea.NewProgram(ui.NewApp(st, sched), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runOneShot performs a single fetch and scan round and prints the
// resulting account views as indented JSON.
func runOneShot(st *store.Store, costStore *costs.Store, fetchers []fetch.Fetcher) {
	ctx := context.Background()

	costStore.RefreshPricing(ctx, false)

	for _, f := range fetchers {
		snap, err := f.Fetch(ctx)
		if err != nil {
			st.SetError(f.Kind(), err.Error())
			continue
		}
		st.UpdateSnapshot(f.Kind(), snap)
	}
	for kind, res := range costStore.ScanAll(ctx) {
		if res.Err != nil {
			st.SetError(kind, res.Err.Error())
			continue
		}
		st.UpdateCost(kind, res.Snapshot)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st.Views()); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
}
