package domain

// Span is a half-open byte range [Start, End) in normalized text.
type Span struct {
	Start int
	End   int
}

// Len returns the span length in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether two spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// MatchRecord holds the matches of one keyword group in one document.
// Count always equals len(Spans) and spans never overlap.
type MatchRecord struct {
	// GroupID identifies the keyword group.
	GroupID string

	// Count is the number of accepted matches.
	Count int

	// Spans are the accepted matches in text order.
	Spans []Span

	// Variants maps each variant to the number of accepted matches it produced.
	Variants map[string]int
}

// EntityHint is a candidate keyword occurrence reported by a semantic service.
// Hints are never trusted for counting.
type EntityHint struct {
	// Text is the surface form the service found.
	Text string

	// GroupID is the group the service assigned, if any.
	GroupID string

	// Count is the number of occurrences the service claims.
	Count int
}
