package scanner

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Kabilan108/claude-bar/internal/domain"
	"github.com/Kabilan108/claude-bar/internal/pricing"
)

// ClaudeScanner reads Claude Code project logs. Each assistant record
// reports the token counts for one exchange (per-event accounting), but
// streamed writes re-report the same exchange, so records deduplicate on
// the MessageID:RequestID pair.
type ClaudeScanner struct {
	roots []string
	loc   *time.Location
	log   *slog.Logger
}

// NewClaudeScanner scans the default project log locations plus any
// extra roots from configuration. Claude Code has stored logs under two
// historical paths.
func NewClaudeScanner(extraRoots []string, loc *time.Location, logger *slog.Logger) *ClaudeScanner {
	var roots []string
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, filepath.Join(home, ".claude", "projects"))
	}
	if cfg, err := os.UserConfigDir(); err == nil {
		roots = append(roots, filepath.Join(cfg, "claude", "projects"))
	}
	roots = append(roots, extraRoots...)

	return &ClaudeScanner{roots: roots, loc: loc, log: logger}
}

func (s *ClaudeScanner) Kind() domain.AccountKind { return domain.AccountClaude }

// Roots returns the directories this scanner walks.
func (s *ClaudeScanner) Roots() []string { return s.roots }

// claudeRecord maps the JSONL structure we care about.
type claudeRecord struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"requestId"`
	Message   *struct {
		ID    string `json:"id"`
		Model string `json:"model"`
		Usage *struct {
			InputTokens              int64 `json:"input_tokens"`
			OutputTokens             int64 `json:"output_tokens"`
			CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
			CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
		} `json:"usage"`
	} `json:"message"`
}

func (s *ClaudeScanner) Scan(since, until string) ([]domain.DailyUsage, error) {
	files, err := findLogFiles(s.roots, since, until)
	if err != nil {
		return nil, err
	}
	s.log.Debug("scanning claude logs", "files", len(files))

	agg := make(map[usageKey]domain.TokenUsage)
	seen := make(map[string]struct{})

	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			s.log.Debug("skipping unreadable log file", "path", path, "error", err)
			continue
		}
		s.parseFile(f, since, until, seen, agg)
		f.Close()
	}

	return collectDaily(agg), nil
}

// parseFile streams one log file line by line. A line that fails to
// parse, or parses but lacks the expected shape, is skipped without
// aborting the rest of the file.
func (s *ClaudeScanner) parseFile(r io.Reader, since, until string, seen map[string]struct{}, agg map[usageKey]domain.TokenUsage) {
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024) // 10MB max line

	for scan.Scan() {
		line := scan.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec claudeRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		// Only assistant records carry usage data.
		if rec.Type != "assistant" || rec.Message == nil || rec.Message.Usage == nil {
			continue
		}

		ts, err := time.Parse(time.RFC3339Nano, rec.Timestamp)
		if err != nil {
			ts, err = time.Parse("2006-01-02T15:04:05.000Z", rec.Timestamp)
			if err != nil {
				continue
			}
		}
		day := ts.In(s.loc).Format(domain.DateFormat)
		if day < since || day > until {
			continue
		}

		// First occurrence of a MessageID:RequestID pair wins; records
		// with neither identifier cannot be correlated and always count.
		key := rec.Message.ID + ":" + rec.RequestID
		if key != ":" {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}

		model := rec.Message.Model
		if model == "" {
			model = "unknown"
		}
		model = pricing.Normalize(model)

		u := rec.Message.Usage
		tokens := agg[usageKey{date: day, model: model}]
		tokens.Add(domain.TokenUsage{
			InputTokens:         u.InputTokens,
			OutputTokens:        u.OutputTokens,
			CacheCreationTokens: u.CacheCreationInputTokens,
			CacheReadTokens:     u.CacheReadInputTokens,
		})
		agg[usageKey{date: day, model: model}] = tokens
	}
}
