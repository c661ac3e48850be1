package pricing

import (
	"math"
	"testing"

	"github.com/Kabilan108/claude-bar/internal/domain"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestCost_Basic(t *testing.T) {
	p := ModelPricing{Input: 3.0, Output: 15.0}
	u := domain.TokenUsage{InputTokens: 1_000_000, OutputTokens: 100_000}

	if got := p.Cost(u); !almostEqual(got, 4.5, 0.001) {
		t.Errorf("Cost = %f, want 4.5", got)
	}
}

func TestCost_WithCache(t *testing.T) {
	p := ModelPricing{Input: 3.0, Output: 15.0, CacheCreation: 3.75, CacheRead: 0.3}
	u := domain.TokenUsage{
		InputTokens:         1_000_000,
		OutputTokens:        100_000,
		CacheCreationTokens: 50_000,
		CacheReadTokens:     200_000,
	}

	if got := p.Cost(u); !almostEqual(got, 4.7475, 0.001) {
		t.Errorf("Cost = %f, want 4.7475", got)
	}
}

func TestCost_Tiered(t *testing.T) {
	p := ModelPricing{
		Input: 3.0, Output: 15.0,
		ThresholdTokens: 200_000,
		InputAbove:      6.0, OutputAbove: 22.5,
	}

	// 200k at base + 100k above: 0.6 + 0.6 = 1.2
	u := domain.TokenUsage{InputTokens: 300_000}
	if got := p.Cost(u); !almostEqual(got, 1.2, 0.001) {
		t.Errorf("tiered Cost = %f, want 1.2", got)
	}

	// At or below the threshold only base rates apply.
	u = domain.TokenUsage{InputTokens: 200_000}
	if got := p.Cost(u); !almostEqual(got, 0.6, 0.001) {
		t.Errorf("at-threshold Cost = %f, want 0.6", got)
	}
}

func TestCost_TieredSplitEqualsBasePlusAbove(t *testing.T) {
	p := ModelPricing{
		Input: 3.0, Output: 15.0,
		ThresholdTokens: 200_000,
		InputAbove:      6.0, OutputAbove: 22.5,
	}

	for _, total := range []int64{200_001, 250_000, 1_000_000} {
		base := p.Cost(domain.TokenUsage{InputTokens: p.ThresholdTokens})
		above := float64(total-p.ThresholdTokens) * p.InputAbove / 1_000_000
		got := p.Cost(domain.TokenUsage{InputTokens: total})
		if !almostEqual(got, base+above, 1e-9) {
			t.Errorf("tokens=%d: Cost = %f, want %f", total, got, base+above)
		}
	}
}

func TestCost_MonotonicInTokenCount(t *testing.T) {
	p := ModelPricing{
		Input: 3.0, Output: 15.0,
		ThresholdTokens: 200_000,
		InputAbove:      6.0, OutputAbove: 22.5,
	}

	prev := -1.0
	for _, n := range []int64{0, 1, 199_999, 200_000, 200_001, 500_000} {
		got := p.Cost(domain.TokenUsage{InputTokens: n})
		if got < prev {
			t.Errorf("Cost not monotonic at %d tokens: %f < %f", n, got, prev)
		}
		prev = got
	}
}

func TestCost_ZeroUsageIsExactlyZero(t *testing.T) {
	p := ModelPricing{Input: 3.0, Output: 15.0}
	got := p.Cost(domain.TokenUsage{})
	if got != 0.0 || math.Signbit(got) {
		t.Errorf("zero usage Cost = %v, want exactly 0.0", got)
	}
}

func TestCost_NeverNegativeZero(t *testing.T) {
	// A zero price table times real tokens must not display as -0.00.
	p := ModelPricing{}
	got := p.Cost(domain.TokenUsage{InputTokens: 100})
	if math.Signbit(got) {
		t.Errorf("Cost produced negative zero: %v", got)
	}
}

func TestParseDocument_RoundTripsThroughEncode(t *testing.T) {
	table, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}

	data, err := EncodeDocument(table)
	if err != nil {
		t.Fatalf("EncodeDocument: %v", err)
	}

	again, err := ParseDocument(data)
	if err != nil {
		t.Fatalf("ParseDocument(encoded): %v", err)
	}
	if len(again) != len(table) {
		t.Fatalf("round trip lost models: %d != %d", len(again), len(table))
	}

	sonnet, ok := again["claude-sonnet-4-20250514"]
	if !ok {
		t.Fatal("missing claude-sonnet-4-20250514 after round trip")
	}
	if sonnet.ThresholdTokens != 200_000 {
		t.Errorf("ThresholdTokens = %d, want 200000", sonnet.ThresholdTokens)
	}
	if !almostEqual(sonnet.InputAbove, 6.0, 0.001) {
		t.Errorf("InputAbove = %f, want 6.0", sonnet.InputAbove)
	}
}

func TestParseDocument_StructuralFailure(t *testing.T) {
	if _, err := ParseDocument([]byte(`["not","an","object"]`)); err == nil {
		t.Error("expected error for non-object root")
	}
}

func TestParseDocument_DropsIncompleteEntries(t *testing.T) {
	doc := []byte(`{
		"claude-incomplete": {"input_cost_per_token": 3e-06},
		"claude-complete": {"input_cost_per_token": 3e-06, "output_cost_per_token": 1.5e-05}
	}`)

	table, err := ParseDocument(doc)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if len(table) != 1 {
		t.Errorf("expected 1 model, got %d", len(table))
	}
	if _, ok := table["claude-complete"]; !ok {
		t.Error("complete entry should survive")
	}
}

func TestTable_Merge(t *testing.T) {
	base := Table{
		"claude-opus-4":  {Input: 15.0, Output: 75.0},
		"claude-haiku-3": {Input: 0.80, Output: 4.0},
	}
	other := Table{
		"claude-opus-4":   {Input: 16.0, Output: 80.0},
		"claude-sonnet-4": {Input: 3.0, Output: 15.0},
	}

	base.Merge(other)

	if len(base) != 3 {
		t.Errorf("expected 3 models after merge, got %d", len(base))
	}
	if base["claude-opus-4"].Input != 16.0 {
		t.Errorf("opus Input should be overwritten to 16.0, got %f", base["claude-opus-4"].Input)
	}
	if base["claude-haiku-3"].Input != 0.80 {
		t.Errorf("haiku should remain, got %f", base["claude-haiku-3"].Input)
	}
}
