// Package scanner recovers token consumption from the append-only
// session logs the vendor CLIs write locally. Each account kind has its
// own log layout and accounting strategy; both emit dated per-model
// token totals for the cost store to price.
package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Kabilan108/claude-bar/internal/domain"
)

// Scanner walks one account kind's log roots and aggregates token usage
// for the inclusive [since, until] local-calendar-day range.
type Scanner interface {
	Kind() domain.AccountKind
	Scan(since, until string) ([]domain.DailyUsage, error)
}

// findLogFiles collects .jsonl files under the given roots. Roots that
// do not exist are skipped; an unreadable directory propagates as a scan
// error. Files whose name encodes a calendar day outside the range are
// filtered out early.
func findLogFiles(roots []string, since, until string) ([]string, error) {
	var files []string
	for _, root := range roots {
		if _, err := os.Stat(root); os.IsNotExist(err) {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || filepath.Ext(path) != ".jsonl" {
				return nil
			}
			if day, ok := dateFromFileName(path); ok && (day < since || day > until) {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// dateFromFileName recognizes date-named files like 2026-01-18.jsonl.
func dateFromFileName(path string) (string, bool) {
	stem := strings.TrimSuffix(filepath.Base(path), ".jsonl")
	if _, err := time.Parse(domain.DateFormat, stem); err != nil {
		return "", false
	}
	return stem, true
}

type usageKey struct {
	date  string
	model string
}

// collectDaily flattens a (date, model) aggregate map into rows sorted
// by date then model.
func collectDaily(agg map[usageKey]domain.TokenUsage) []domain.DailyUsage {
	rows := make([]domain.DailyUsage, 0, len(agg))
	for key, tokens := range agg {
		rows = append(rows, domain.DailyUsage{Date: key.date, Model: key.model, Tokens: tokens})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].Model < rows[j].Model
	})
	return rows
}
