package apisurface

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultCutoff is the minimum similarity for a suggestion.
const DefaultCutoff = 0.6

// Surface is an immutable set of approved symbol names.
type Surface struct {
	names  map[string]struct{}
	sorted []string
}

// NewSurface builds a Surface from names. Duplicates are ignored.
func NewSurface(names ...string) Surface {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n != "" {
			set[n] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(set))
	for n := range set {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)
	return Surface{names: set, sorted: sorted}
}

// Has reports whether name is approved.
func (s Surface) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of symbols.
func (s Surface) Len() int { return len(s.sorted) }

// Empty reports whether the surface is unavailable.
func (s Surface) Empty() bool { return len(s.sorted) == 0 }

// Sorted returns the symbols in lexical order.
func (s Surface) Sorted() []string {
	out := make([]string, len(s.sorted))
	copy(out, s.sorted)
	return out
}

// Closest returns the symbol most similar to name whose similarity ratio is
// at least cutoff. Candidates must pass the cheap upper-bound ratios before
// the full ratio is computed; equal ratios resolve to the greater name.
func (s Surface) Closest(name string, cutoff float64) (string, bool) {
	if s.Empty() {
		return "", false
	}
	word := strings.Split(name, "")
	m := difflib.NewMatcher(nil, word)

	best, bestRatio := "", -1.0
	for _, cand := range s.sorted {
		m.SetSeq1(strings.Split(cand, ""))
		if m.RealQuickRatio() < cutoff || m.QuickRatio() < cutoff {
			continue
		}
		r := m.Ratio()
		if r < cutoff {
			continue
		}
		// sorted order means a later equal ratio is a greater name
		if r >= bestRatio {
			best, bestRatio = cand, r
		}
	}
	return best, best != ""
}
