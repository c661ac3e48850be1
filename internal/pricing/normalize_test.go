package pricing

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"anthropic.claude-3-5-sonnet", "claude-3-5-sonnet"},
		{"openai/gpt-4o-codex", "gpt-4o"},
		{"claude-sonnet-4-v1:0", "claude-sonnet-4"},
		{"Claude-Opus-4", "claude-opus-4"},
		{"gpt-5", "gpt-5"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestLookup_Exact(t *testing.T) {
	table, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}

	if _, ok := table.Lookup("claude-3-5-sonnet-20241022"); !ok {
		t.Error("exact lookup failed")
	}
	if _, ok := table.Lookup("gpt-4o"); !ok {
		t.Error("exact lookup failed for gpt-4o")
	}
}

func TestLookup_NormalizedPrefix(t *testing.T) {
	table, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}

	// Provider-prefixed identifier resolves through normalization.
	if _, ok := table.Lookup("anthropic.claude-opus-4-20250514"); !ok {
		t.Error("normalized lookup failed")
	}
	// Undated identifier resolves to the dated key.
	p, ok := table.Lookup("claude-sonnet-4")
	if !ok {
		t.Fatal("date-stripped lookup failed")
	}
	if p.ThresholdTokens != 200_000 {
		t.Errorf("resolved wrong model: threshold %d", p.ThresholdTokens)
	}
}

func TestLookup_Fuzzy(t *testing.T) {
	table := Table{
		"claude-sonnet-4": {Input: 3.0, Output: 15.0},
		"gpt-4o":          {Input: 2.5, Output: 10.0},
	}

	// A renamed identifier containing a known key still resolves.
	if p, ok := table.Lookup("us.claude-sonnet-4-20250514-beta"); !ok || p.Input != 3.0 {
		t.Errorf("fuzzy lookup = (%v, %v), want sonnet pricing", p, ok)
	}
	if _, ok := table.Lookup("totally-unknown-model"); ok {
		t.Error("unknown model should not resolve")
	}
}

func TestBestMatch_Deterministic(t *testing.T) {
	keys := []string{"claude-opus-4", "claude-opus-4-5"}

	key, ok := bestMatch("claude-opus-4-5-20251101", keys)
	if !ok {
		t.Fatal("expected a match")
	}
	if key != "claude-opus-4-5" {
		t.Errorf("bestMatch = %q, want longest overlap claude-opus-4-5", key)
	}
}
