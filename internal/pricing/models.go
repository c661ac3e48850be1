package pricing

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/Kabilan108/claude-bar/internal/domain"
)

//go:embed pricing.json
var defaultPricingJSON []byte

// ModelPricing holds USD prices per 1M tokens for one model. A non-zero
// ThresholdTokens activates volume-tiered billing for input and output:
// tokens past the threshold bill at the Above rates. Cache reads and
// writes are never tiered.
type ModelPricing struct {
	Input           float64
	Output          float64
	CacheCreation   float64
	CacheRead       float64
	ThresholdTokens int64
	InputAbove      float64
	OutputAbove     float64
}

// Cost prices one usage event. Never returns a negative value, and an
// all-zero usage yields exactly 0.0 (no -0.0 leaking into display).
func (p ModelPricing) Cost(u domain.TokenUsage) float64 {
	cost := tieredCost(u.InputTokens, p.Input, p.InputAbove, p.ThresholdTokens)
	cost += tieredCost(u.OutputTokens, p.Output, p.OutputAbove, p.ThresholdTokens)
	cost += float64(u.CacheCreationTokens) * p.CacheCreation / 1_000_000
	cost += float64(u.CacheReadTokens) * p.CacheRead / 1_000_000
	if cost <= 0 {
		return 0
	}
	return cost
}

func tieredCost(tokens int64, base, above float64, threshold int64) float64 {
	if threshold > 0 && above > 0 && tokens > threshold {
		below := float64(threshold) * base / 1_000_000
		over := float64(tokens-threshold) * above / 1_000_000
		return below + over
	}
	return float64(tokens) * base / 1_000_000
}

// Table maps normalized model identifiers to pricing.
type Table map[string]ModelPricing

// Merge adds entries from other into t. Existing keys are overwritten.
func (t Table) Merge(other Table) {
	for k, v := range other {
		t[k] = v
	}
}

// docEntry is one model entry in the wire/cache pricing document.
// Prices are per single token, as the upstream document reports them.
type docEntry struct {
	InputCostPerToken  *float64 `json:"input_cost_per_token"`
	OutputCostPerToken *float64 `json:"output_cost_per_token"`
	CacheCreationCost  *float64 `json:"cache_creation_input_token_cost,omitempty"`
	CacheReadCost      *float64 `json:"cache_read_input_token_cost,omitempty"`
	ThresholdTokens    *int64   `json:"threshold_tokens,omitempty"`
	InputCostAbove     *float64 `json:"input_cost_per_token_above_threshold,omitempty"`
	OutputCostAbove    *float64 `json:"output_cost_per_token_above_threshold,omitempty"`
}

// ParseDocument parses a pricing document. The remote response, the
// cache file, and the embedded defaults all share this one shape. A root
// that is not a JSON object is a structural failure; individual entries
// missing input or output prices are dropped, not fatal.
func ParseDocument(data []byte) (Table, error) {
	var raw map[string]docEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse pricing document: %w", err)
	}

	table := make(Table, len(raw))
	for key, e := range raw {
		if e.InputCostPerToken == nil || e.OutputCostPerToken == nil {
			continue
		}
		mp := ModelPricing{
			Input:  *e.InputCostPerToken * 1_000_000,
			Output: *e.OutputCostPerToken * 1_000_000,
		}
		if e.CacheCreationCost != nil {
			mp.CacheCreation = *e.CacheCreationCost * 1_000_000
		}
		if e.CacheReadCost != nil {
			mp.CacheRead = *e.CacheReadCost * 1_000_000
		}
		if e.ThresholdTokens != nil && *e.ThresholdTokens > 0 {
			mp.ThresholdTokens = *e.ThresholdTokens
			if e.InputCostAbove != nil {
				mp.InputAbove = *e.InputCostAbove * 1_000_000
			}
			if e.OutputCostAbove != nil {
				mp.OutputAbove = *e.OutputCostAbove * 1_000_000
			}
		}
		table[Normalize(key)] = mp
	}
	return table, nil
}

// EncodeDocument renders a table back into the document shape so the
// cache file round-trips through ParseDocument.
func EncodeDocument(t Table) ([]byte, error) {
	raw := make(map[string]docEntry, len(t))
	for key, mp := range t {
		e := docEntry{
			InputCostPerToken:  perToken(mp.Input),
			OutputCostPerToken: perToken(mp.Output),
		}
		if mp.CacheCreation > 0 {
			e.CacheCreationCost = perToken(mp.CacheCreation)
		}
		if mp.CacheRead > 0 {
			e.CacheReadCost = perToken(mp.CacheRead)
		}
		if mp.ThresholdTokens > 0 {
			threshold := mp.ThresholdTokens
			e.ThresholdTokens = &threshold
			e.InputCostAbove = perToken(mp.InputAbove)
			e.OutputCostAbove = perToken(mp.OutputAbove)
		}
		raw[key] = e
	}
	return json.MarshalIndent(raw, "", "  ")
}

func perToken(perMillion float64) *float64 {
	v := perMillion / 1_000_000
	return &v
}

// LoadDefault parses the compiled-in price table.
func LoadDefault() (Table, error) {
	return ParseDocument(defaultPricingJSON)
}
