// Package match resolves a free-text property reference to at most one
// catalog candidate through a three-tier cascade: exact on the normalized
// title, containment either way, then word overlap. Each tier is exhausted
// over the full candidate list before the next is tried; ties within a tier
// go to the first candidate encountered, so the result is deterministic for
// a given candidate order.
package match

import (
	"strings"

	"github.com/shopspring/decimal"

	"example.com/tenantimport/normalize"
)

// Candidate is a property-catalog entry eligible for matching.
type Candidate struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Address string          `json:"address,omitempty"`
	Price   decimal.Decimal `json:"price"`
}

// Best returns the catalog candidate the query resolves to, or nil when no
// tier accepts any candidate. An empty query never matches.
func Best(query string, candidates []Candidate) *Candidate {
	q := normalizeText(query)
	if q == "" {
		return nil
	}

	titles := make([]string, len(candidates))
	for i, c := range candidates {
		titles[i] = normalizeText(c.Title)
	}

	for i, title := range titles {
		if title != "" && title == q {
			return &candidates[i]
		}
	}

	for i, title := range titles {
		if title == "" {
			continue
		}
		if strings.Contains(title, q) || strings.Contains(q, title) {
			return &candidates[i]
		}
	}

	qWords := significantWords(q)
	if len(qWords) == 0 {
		return nil
	}
	threshold := 2
	if len(qWords) < threshold {
		threshold = len(qWords)
	}
	best, bestCommon := -1, 0
	for i, title := range titles {
		common := 0
		for _, qw := range qWords {
			if overlaps(qw, significantWords(title)) {
				common++
			}
		}
		// Strict comparison keeps the first candidate on ties.
		if common > bestCommon {
			best, bestCommon = i, common
		}
	}
	if best >= 0 && bestCommon >= threshold {
		return &candidates[best]
	}
	return nil
}

// overlaps reports whether word contains or is contained by any of the
// given words.
func overlaps(word string, words []string) bool {
	for _, w := range words {
		if strings.Contains(w, word) || strings.Contains(word, w) {
			return true
		}
	}
	return false
}

// normalizeText folds the input and keeps only lowercase letters, digits and
// single spaces. It is idempotent.
func normalizeText(s string) string {
	folded := normalize.Fold(s)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// significantWords splits a normalized string into words, discarding those
// of two characters or fewer.
func significantWords(s string) []string {
	var words []string
	for _, w := range strings.Fields(s) {
		if len(w) > 2 {
			words = append(words, w)
		}
	}
	return words
}
