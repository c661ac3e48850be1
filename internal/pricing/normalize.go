package pricing

import (
	"sort"
	"strings"
)

// Normalize canonicalizes a model identifier as it appears in logs or
// pricing documents. Vendors rename identifiers across log format
// revisions, so lookups go through this first.
func Normalize(model string) string {
	m := strings.ToLower(model)
	m = strings.TrimPrefix(m, "anthropic.")
	m = strings.TrimPrefix(m, "openai/")
	m = strings.TrimSuffix(m, "-codex")
	// Vertex AI version suffixes like "-v1:0"
	if i := strings.Index(m, "-v1:"); i >= 0 {
		m = m[:i]
	}
	return m
}

// Lookup resolves pricing for a model: exact match on the normalized
// identifier, then a date-suffix-stripped prefix match, then best-effort
// fuzzy matching against known identifiers.
func (t Table) Lookup(model string) (ModelPricing, bool) {
	normalized := Normalize(model)

	if p, ok := t[normalized]; ok {
		return p, true
	}

	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Strip trailing date digits: claude-sonnet-4-20250514 -> claude-sonnet-4
	if base := strings.TrimRight(normalized, "-0123456789"); base != "" && base != normalized {
		for _, key := range keys {
			if strings.HasPrefix(key, base) {
				return t[key], true
			}
		}
	}

	if key, ok := bestMatch(normalized, keys); ok {
		return t[key], true
	}
	return ModelPricing{}, false
}

// bestMatch finds the closest known identifier by substring containment
// in either direction, preferring the longest overlap. Keys must be
// sorted for determinism. Kept as a pure function so the matching policy
// can evolve independently of scan and pricing logic.
func bestMatch(normalized string, sortedKeys []string) (string, bool) {
	var best string
	bestLen := 0
	for _, key := range sortedKeys {
		if strings.Contains(normalized, key) || strings.Contains(key, normalized) {
			overlap := len(key)
			if len(normalized) < overlap {
				overlap = len(normalized)
			}
			if overlap > bestLen {
				best = key
				bestLen = overlap
			}
		}
	}
	return best, bestLen > 0
}
