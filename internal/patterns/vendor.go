package patterns

import (
	"strings"

	"github.com/mcarecon/mcarecon/internal/config"
	"github.com/mcarecon/mcarecon/internal/similarity"
)

// VendorMatcher matches descriptions against known vendors in configured
// order; the first match wins.
type VendorMatcher struct {
	vendors   []config.Vendor
	names     [][]string
	scorer    similarity.Scorer
	threshold float64
}

// NewVendorMatcher builds a matcher. Fuzzy vendors match when scorer rates
// some window of the description at or above threshold.
func NewVendorMatcher(vendors []config.Vendor, scorer similarity.Scorer, threshold float64) *VendorMatcher {
	m := &VendorMatcher{vendors: vendors, scorer: scorer, threshold: threshold}
	for _, v := range vendors {
		m.names = append(m.names, similarity.Tokens(v.Name))
	}
	return m
}

// Match returns the first vendor matching desc.
func (m *VendorMatcher) Match(desc string) (config.Vendor, bool) {
	upper := strings.ToUpper(strings.TrimSpace(desc))
	if upper == "" {
		return config.Vendor{}, false
	}
	words := similarity.Tokens(desc)
	for i, v := range m.vendors {
		name := strings.ToUpper(strings.TrimSpace(v.Name))
		var ok bool
		switch v.Match {
		case config.MatchExact:
			ok = upper == name
		case config.MatchContains:
			ok = strings.Contains(upper, name)
		default:
			ok = m.fuzzy(words, m.names[i])
		}
		if ok {
			return v, true
		}
	}
	return config.Vendor{}, false
}

// fuzzy scores every run of len(name) consecutive words against the name,
// so "SYSC0 FOODS 8812 HOUSTON" can still match "Sysco Foods".
func (m *VendorMatcher) fuzzy(words, name []string) bool {
	if len(words) == 0 || len(name) == 0 {
		return false
	}
	target := strings.Join(name, " ")
	width := min(len(name), len(words))
	for i := 0; i+width <= len(words); i++ {
		if m.scorer.Score(strings.Join(words[i:i+width], " "), target) >= m.threshold {
			return true
		}
	}
	return false
}
