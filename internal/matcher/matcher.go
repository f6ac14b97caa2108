// Package matcher counts keyword-group occurrences in normalised text.
//
// Each variant is matched case-insensitively on word boundaries, with any
// run of whitespace in the text standing in for a space in the variant.
// Within one group, overlapping candidates are resolved longest-first from
// left to right; different groups never suppress each other.
package matcher

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/textnorm"
)

// Matcher holds the matching options for a run. It is safe for concurrent use.
type Matcher struct {
	opts domain.MatchOptions
}

// New creates a matcher.
func New(opts domain.MatchOptions) *Matcher {
	return &Matcher{opts: opts}
}

// pattern is one variant ready for comparison.
type pattern struct {
	variant string
	index   int
	tokens  [][]rune
}

// candidate is a raw variant hit before overlap resolution.
type candidate struct {
	start, end int // rune indices
	pattern    *pattern
}

// folded is the text as comparable runes. offs maps each rune back to its
// byte offset in the original string.
type folded struct {
	runes []rune
	offs  []int
	size  int
}

func (f *folded) byteOffset(i int) int {
	if i < len(f.offs) {
		return f.offs[i]
	}
	return f.size
}

// Match returns one record per taxonomy group. Spans are byte offsets
// into text. An empty text or taxonomy yields zero counts, never an error.
func (m *Matcher) Match(text string, taxonomy *domain.Taxonomy) map[string]domain.MatchRecord {
	groups := taxonomy.Groups()
	records := make(map[string]domain.MatchRecord, len(groups))
	if len(groups) == 0 {
		return records
	}

	t := m.fold(text)
	for _, g := range groups {
		patterns := m.compile(g)
		records[g.ID] = resolve(g.ID, &t, m.candidates(&t, patterns))
	}
	return records
}

// CheckHints compares service-reported hints against verified counts.
// Counts always come from the matcher; a disagreement only produces a warning.
func (m *Matcher) CheckHints(records map[string]domain.MatchRecord, hints []domain.EntityHint) []domain.Warning {
	claimed := make(map[string]int)
	for _, h := range hints {
		if _, ok := records[h.GroupID]; ok {
			claimed[h.GroupID] += h.Count
		}
	}

	ids := make([]string, 0, len(claimed))
	for id := range claimed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var warnings []domain.Warning
	for _, id := range ids {
		if got := records[id].Count; got != claimed[id] {
			warnings = append(warnings, domain.Warning{
				Code:    domain.WarnHintMismatch,
				Message: fmt.Sprintf("group %s: service reported %d, verified %d", id, claimed[id], got),
			})
		}
	}
	return warnings
}

func (m *Matcher) fold(text string) folded {
	f := folded{size: len(text)}
	for i, r := range text {
		if m.opts.FoldDiacritics && unicode.Is(unicode.Mn, r) {
			continue
		}
		f.runes = append(f.runes, textnorm.FoldRune(r, m.opts.FoldDiacritics))
		f.offs = append(f.offs, i)
	}
	return f
}

func (m *Matcher) compile(g domain.KeywordGroup) []*pattern {
	patterns := make([]*pattern, 0, len(g.Variants))
	for i, v := range g.Variants {
		var tokens [][]rune
		for _, word := range strings.Fields(textnorm.Fold(v, m.opts.FoldDiacritics)) {
			var tok []rune
			for _, r := range word {
				if m.opts.FoldDiacritics && unicode.Is(unicode.Mn, r) {
					continue
				}
				tok = append(tok, r)
			}
			if len(tok) > 0 {
				tokens = append(tokens, tok)
			}
		}
		if len(tokens) > 0 {
			patterns = append(patterns, &pattern{variant: v, index: i, tokens: tokens})
		}
	}
	return patterns
}

func (m *Matcher) candidates(t *folded, patterns []*pattern) []candidate {
	byFirst := make(map[rune][]*pattern)
	for _, p := range patterns {
		byFirst[p.tokens[0][0]] = append(byFirst[p.tokens[0][0]], p)
	}

	var out []candidate
	for i, r := range t.runes {
		ps := byFirst[r]
		if len(ps) == 0 || (i > 0 && isWordRune(t.runes[i-1])) {
			continue
		}
		for _, p := range ps {
			end, ok := m.matchAt(t, i, p.tokens)
			if !ok || (end < len(t.runes) && isWordRune(t.runes[end])) {
				continue
			}
			out = append(out, candidate{start: i, end: end, pattern: p})
		}
	}
	return out
}

// matchAt reports whether tokens match at rune index i and where the match ends.
func (m *Matcher) matchAt(t *folded, i int, tokens [][]rune) (int, bool) {
	j := i
	for k, tok := range tokens {
		if k > 0 {
			if j = m.skipSeparator(t, j); j < 0 {
				return 0, false
			}
		}
		if j+len(tok) > len(t.runes) {
			return 0, false
		}
		for x, r := range tok {
			if t.runes[j+x] != r {
				return 0, false
			}
		}
		j += len(tok)
	}
	return j, true
}

// skipSeparator consumes the text between two variant words: a whitespace
// run, or with flexible separators a single '-', '_', '.' or nothing.
func (m *Matcher) skipSeparator(t *folded, j int) int {
	start := j
	for j < len(t.runes) && unicode.IsSpace(t.runes[j]) {
		j++
	}
	if j > start {
		return j
	}
	if !m.opts.FlexibleSeparators {
		return -1
	}
	if j < len(t.runes) {
		switch t.runes[j] {
		case '-', '_', '.':
			return j + 1
		}
	}
	return j
}

// resolve applies longest-match-first, left to right, within one group.
func resolve(groupID string, t *folded, cands []candidate) domain.MatchRecord {
	sort.Slice(cands, func(a, b int) bool {
		ca, cb := cands[a], cands[b]
		if ca.start != cb.start {
			return ca.start < cb.start
		}
		if ca.end != cb.end {
			return ca.end > cb.end
		}
		return ca.pattern.index < cb.pattern.index
	})

	rec := domain.MatchRecord{
		GroupID:  groupID,
		Spans:    []domain.Span{},
		Variants: map[string]int{},
	}
	last := -1
	for _, c := range cands {
		if c.start < last {
			continue
		}
		rec.Spans = append(rec.Spans, domain.Span{Start: t.byteOffset(c.start), End: t.byteOffset(c.end)})
		rec.Variants[c.pattern.variant]++
		last = c.end
	}
	rec.Count = len(rec.Spans)
	return rec
}

// isWordRune reports whether r continues an alphanumeric token.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
