package scanner

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Kabilan108/claude-bar/internal/domain"
	"github.com/Kabilan108/claude-bar/internal/pricing"
)

// CodexScanner reads Codex session logs. These report a running
// cumulative token total per session instead of per-event counts, so
// the scanner tracks the last-seen total per (session, model) and emits
// only the positive delta. A total that goes backwards means the
// session identifier was reused by a fresh session; the new value is
// taken as a fresh baseline, never a negative delta.
type CodexScanner struct {
	roots []string
	loc   *time.Location
	log   *slog.Logger
}

// NewCodexScanner scans $CODEX_HOME/sessions (or ~/.codex/sessions)
// plus any extra roots. Sessions are laid out sessions/YYYY/MM/DD/*.jsonl
// with the calendar day encoded in the path.
func NewCodexScanner(extraRoots []string, loc *time.Location, logger *slog.Logger) *CodexScanner {
	var roots []string
	if home := os.Getenv("CODEX_HOME"); home != "" {
		roots = append(roots, filepath.Join(home, "sessions"))
	} else if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, filepath.Join(home, ".codex", "sessions"))
	}
	roots = append(roots, extraRoots...)

	return &CodexScanner{roots: roots, loc: loc, log: logger}
}

func (s *CodexScanner) Kind() domain.AccountKind { return domain.AccountCodex }

// Roots returns the directories this scanner walks.
func (s *CodexScanner) Roots() []string { return s.roots }

type codexRecord struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Payload   *struct {
		Type  string `json:"type"`
		Model string `json:"model"`
		Info  *struct {
			Model           string `json:"model"`
			ModelName       string `json:"model_name"`
			TotalTokenUsage *struct {
				InputTokens          int64 `json:"input_tokens"`
				CachedInputTokens    int64 `json:"cached_input_tokens"`
				CacheReadInputTokens int64 `json:"cache_read_input_tokens"`
				OutputTokens         int64 `json:"output_tokens"`
			} `json:"total_token_usage"`
		} `json:"info"`
	} `json:"payload"`
}

// codexTotals is one observed cumulative counter value.
type codexTotals struct {
	input, cached, output int64
}

func (s *CodexScanner) Scan(since, until string) ([]domain.DailyUsage, error) {
	files, err := findLogFiles(s.roots, since, until)
	if err != nil {
		return nil, err
	}
	s.log.Debug("scanning codex sessions", "files", len(files))

	agg := make(map[usageKey]domain.TokenUsage)

	for _, path := range files {
		fileDay, hasPathDate := dateFromSessionPath(path)
		if hasPathDate && (fileDay < since || fileDay > until) {
			continue
		}

		f, err := os.Open(path)
		if err != nil {
			s.log.Debug("skipping unreadable session file", "path", path, "error", err)
			continue
		}
		s.parseFile(f, fileDay, since, until, agg)
		f.Close()
	}

	return collectDaily(agg), nil
}

// parseFile walks one session file. Each file is one session, so the
// cumulative counters are tracked per model within it.
func (s *CodexScanner) parseFile(r io.Reader, fileDay, since, until string, agg map[usageKey]domain.TokenUsage) {
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)

	currentModel := ""
	lastTotals := make(map[string]codexTotals)

	for scan.Scan() {
		line := scan.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec codexRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.Payload == nil {
			continue
		}

		switch rec.Type {
		case "turn_context":
			// Context records carry the model inherited by the usage
			// records that follow them.
			if rec.Payload.Model != "" {
				currentModel = pricing.Normalize(rec.Payload.Model)
			}
		case "event_msg":
			if rec.Payload.Type != "token_count" || rec.Payload.Info == nil {
				continue
			}
			info := rec.Payload.Info
			if info.TotalTokenUsage == nil {
				continue
			}

			model := info.Model
			if model == "" {
				model = info.ModelName
			}
			if model != "" {
				model = pricing.Normalize(model)
			} else if currentModel != "" {
				model = currentModel
			} else {
				model = "unknown"
			}

			t := info.TotalTokenUsage
			cached := t.CachedInputTokens
			if cached == 0 {
				cached = t.CacheReadInputTokens
			}
			observed := codexTotals{input: t.InputTokens, cached: cached, output: t.OutputTokens}

			delta := diffTotals(observed, lastTotals[model])
			lastTotals[model] = observed

			if delta.input <= 0 && delta.output <= 0 {
				continue
			}

			day := fileDay
			if day == "" {
				ts, err := time.Parse(time.RFC3339Nano, rec.Timestamp)
				if err != nil {
					continue
				}
				day = ts.In(s.loc).Format(domain.DateFormat)
			}
			if day < since || day > until {
				continue
			}

			uncached := delta.input - delta.cached
			cacheRead := delta.cached
			if uncached < 0 {
				uncached = 0
				cacheRead = delta.input
			}

			tokens := agg[usageKey{date: day, model: model}]
			tokens.Add(domain.TokenUsage{
				InputTokens:     uncached,
				OutputTokens:    delta.output,
				CacheReadTokens: cacheRead,
			})
			agg[usageKey{date: day, model: model}] = tokens
		}
	}
}

// diffTotals computes the per-interval delta between two cumulative
// observations. Any component going backwards means the counter was
// reset by a new session, so the whole observation becomes a fresh
// baseline.
func diffTotals(observed, last codexTotals) codexTotals {
	delta := codexTotals{
		input:  observed.input - last.input,
		cached: observed.cached - last.cached,
		output: observed.output - last.output,
	}
	if delta.input < 0 || delta.cached < 0 || delta.output < 0 {
		return observed
	}
	return delta
}

// dateFromSessionPath extracts the day from .../sessions/YYYY/MM/DD/x.jsonl.
func dateFromSessionPath(path string) (string, bool) {
	dir := filepath.Dir(path)
	day := filepath.Base(dir)
	dir = filepath.Dir(dir)
	month := filepath.Base(dir)
	year := filepath.Base(filepath.Dir(dir))

	y, err := strconv.Atoi(year)
	if err != nil || len(year) != 4 {
		return "", false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return "", false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return "", false
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC).Format(domain.DateFormat), true
}
