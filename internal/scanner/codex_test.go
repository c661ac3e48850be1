package scanner

import (
	"fmt"
	"testing"
	"time"
)

func codexTokenLine(model string, input, cached, output int64) string {
	return fmt.Sprintf(
		`{"type":"event_msg","timestamp":"2026-01-18T12:00:00Z","payload":{"type":"token_count","info":{"model":%q,"total_token_usage":{"input_tokens":%d,"cached_input_tokens":%d,"output_tokens":%d}}}}`,
		model, input, cached, output)
}

func newTestCodexScanner(root string) *CodexScanner {
	return &CodexScanner{roots: []string{root}, loc: time.UTC, log: discardLogger()}
}

func TestCodexScanner_CumulativeDeltas(t *testing.T) {
	dir := t.TempDir()
	// Cumulative totals 100 -> 250 -> 400 yield deltas 100, 150, 150.
	writeLog(t, dir, "2026/01/18/session.jsonl", []string{
		codexTokenLine("gpt-5", 100, 0, 10),
		codexTokenLine("gpt-5", 250, 0, 25),
		codexTokenLine("gpt-5", 400, 0, 40),
	})

	rows, err := newTestCodexScanner(dir).Scan("2026-01-01", "2026-01-31")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Tokens.InputTokens != 400 || rows[0].Tokens.OutputTokens != 40 {
		t.Errorf("tokens = %+v, want input 400 output 40", rows[0].Tokens)
	}
}

func TestCodexScanner_CounterResetIsFreshBaseline(t *testing.T) {
	dir := t.TempDir()
	// 400 then 50: the drop marks a new session reusing the identifier.
	// Deltas are 400 and 50, never negative.
	writeLog(t, dir, "2026/01/18/session.jsonl", []string{
		codexTokenLine("gpt-5", 400, 0, 40),
		codexTokenLine("gpt-5", 50, 0, 5),
	})

	rows, err := newTestCodexScanner(dir).Scan("2026-01-01", "2026-01-31")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Tokens.InputTokens != 450 || rows[0].Tokens.OutputTokens != 45 {
		t.Errorf("tokens = %+v, want input 450 output 45", rows[0].Tokens)
	}
}

func TestCodexScanner_ModelInheritedFromTurnContext(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "2026/01/18/session.jsonl", []string{
		`{"type":"turn_context","timestamp":"2026-01-18T12:00:00Z","payload":{"model":"openai/gpt-5-codex"}}`,
		`{"type":"event_msg","timestamp":"2026-01-18T12:00:01Z","payload":{"type":"token_count","info":{"total_token_usage":{"input_tokens":100,"output_tokens":10}}}}`,
	})

	rows, err := newTestCodexScanner(dir).Scan("2026-01-01", "2026-01-31")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Model != "gpt-5" {
		t.Errorf("expected model inherited and normalized to gpt-5, got %+v", rows)
	}
}

func TestCodexScanner_CachedTokensSplitFromInput(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "2026/01/18/session.jsonl", []string{
		codexTokenLine("gpt-5", 1000, 600, 50),
	})

	rows, err := newTestCodexScanner(dir).Scan("2026-01-01", "2026-01-31")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	tok := rows[0].Tokens
	if tok.InputTokens != 400 || tok.CacheReadTokens != 600 {
		t.Errorf("tokens = %+v, want uncached 400 / cacheRead 600", tok)
	}
}

func TestCodexScanner_PathDateOutsideRangeSkipsFile(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "2025/12/01/session.jsonl", []string{
		codexTokenLine("gpt-5", 100, 0, 10),
	})

	rows, err := newTestCodexScanner(dir).Scan("2026-01-01", "2026-01-31")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Errorf("out-of-range session should be skipped, got %+v", rows)
	}
}

func TestCodexScanner_MalformedLinesSkipped(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "2026/01/18/session.jsonl", []string{
		`garbage`,
		codexTokenLine("gpt-5", 100, 0, 10),
		`{"type":"event_msg","payload":{"type":"token_count"}}`,
		codexTokenLine("gpt-5", 200, 0, 20),
	})

	rows, err := newTestCodexScanner(dir).Scan("2026-01-01", "2026-01-31")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Tokens.InputTokens != 200 {
		t.Errorf("malformed lines should be skipped: %+v", rows)
	}
}

func TestDiffTotals(t *testing.T) {
	cases := []struct {
		name           string
		observed, last codexTotals
		want           codexTotals
	}{
		{"increasing", codexTotals{250, 20, 25}, codexTotals{100, 10, 10}, codexTotals{150, 10, 15}},
		{"first observation", codexTotals{100, 0, 10}, codexTotals{}, codexTotals{100, 0, 10}},
		{"reset", codexTotals{50, 5, 5}, codexTotals{400, 40, 40}, codexTotals{50, 5, 5}},
		{"partial reset", codexTotals{500, 5, 50}, codexTotals{400, 40, 40}, codexTotals{500, 5, 50}},
	}
	for _, c := range cases {
		if got := diffTotals(c.observed, c.last); got != c.want {
			t.Errorf("%s: diffTotals = %+v, want %+v", c.name, got, c.want)
		}
	}
}

func TestDateFromSessionPath(t *testing.T) {
	if day, ok := dateFromSessionPath("/home/u/.codex/sessions/2026/01/18/rollout.jsonl"); !ok || day != "2026-01-18" {
		t.Errorf("dateFromSessionPath = %q, %v", day, ok)
	}
	if _, ok := dateFromSessionPath("/home/u/.claude/projects/foo/session.jsonl"); ok {
		t.Error("non-dated layout should not parse")
	}
}
