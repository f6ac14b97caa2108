package services

import (
	"sync"

	"github.com/custodia-labs/tally/internal/core/domain"
)

// Aggregator collects document outcomes into a matrix indexed by
// (document, group). Add may be called from many workers; Snapshot
// returns an independent report.
type Aggregator struct {
	mu      sync.Mutex
	mode    domain.ExtractionMode
	groups  []string
	slots   []*domain.DocumentOutcome
	partial bool
}

// NewAggregator creates an aggregator with room for size documents.
func NewAggregator(mode domain.ExtractionMode, taxonomy *domain.Taxonomy, size int) *Aggregator {
	if size < 0 {
		size = 0
	}
	return &Aggregator{
		mode:   mode,
		groups: taxonomy.GroupIDs(),
		slots:  make([]*domain.DocumentOutcome, size),
	}
}

// Add stores the outcome of document index, growing the arena if needed.
// A second Add for the same index replaces the first.
func (a *Aggregator) Add(index int, outcome domain.DocumentOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for index >= len(a.slots) {
		a.slots = append(a.slots, nil)
	}
	a.slots[index] = &outcome
}

// Append stores the outcome after every existing slot and returns its index.
func (a *Aggregator) Append(outcome domain.DocumentOutcome) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.slots = append(a.slots, &outcome)
	return len(a.slots) - 1
}

// Filled reports whether document index has an outcome.
func (a *Aggregator) Filled(index int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return index < len(a.slots) && a.slots[index] != nil
}

// MarkPartial flags the run as incomplete.
func (a *Aggregator) MarkPartial() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.partial = true
}

// Snapshot builds the report from the filled slots in index order and
// computes its totals.
func (a *Aggregator) Snapshot() *domain.AnalysisReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	report := &domain.AnalysisReport{
		Mode:    a.mode,
		Groups:  append([]string(nil), a.groups...),
		Partial: a.partial,
	}
	for _, slot := range a.slots {
		if slot == nil {
			continue
		}
		row := make([]domain.MatchRecord, len(a.groups))
		for g, id := range a.groups {
			rec, ok := slot.Matches[id]
			if !ok {
				rec = domain.MatchRecord{GroupID: id}
			}
			row[g] = rec
		}
		report.Documents = append(report.Documents, *slot)
		report.Records = append(report.Records, row)
	}
	report.ComputeTotals()
	return report
}
