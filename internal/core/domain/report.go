package domain

import (
	"errors"
	"fmt"
)

// DocumentStatus summarises how completely a document was processed.
type DocumentStatus string

const (
	// StatusSucceeded means every block was extracted.
	StatusSucceeded DocumentStatus = "succeeded"

	// StatusPartial means some blocks were degraded or parsing stopped early.
	StatusPartial DocumentStatus = "partial"

	// StatusFailed means no usable text was produced.
	StatusFailed DocumentStatus = "failed"
)

// DocumentOutcome is the per-document result of one run.
type DocumentOutcome struct {
	// SourceID is the identifier given by the file source.
	SourceID string

	// Filename is the display name used in the report.
	Filename string

	// Status is the processing outcome.
	Status DocumentStatus

	// Reason explains a partial or failed status.
	Reason string

	// Mode is the extraction mode of the run.
	Mode ExtractionMode

	// Warnings lists extraction warnings in the order they occurred.
	Warnings []Warning

	// Blocks is the number of blocks produced, including degraded ones.
	Blocks int

	// DroppedBlocks is the number of degraded blocks.
	DroppedBlocks int

	// TextLength is the rune length of the normalized text.
	TextLength int

	// Matches maps group id to its record.
	Matches map[string]MatchRecord
}

// Completeness returns the share of blocks that were not degraded.
func (o DocumentOutcome) Completeness() float64 {
	if o.Blocks == 0 {
		if o.Status == StatusFailed {
			return 0
		}
		return 1
	}
	return float64(o.Blocks-o.DroppedBlocks) / float64(o.Blocks)
}

// AnalysisReport is the immutable cross-document count matrix of one run.
type AnalysisReport struct {
	// Mode is the extraction mode used for every document.
	Mode ExtractionMode

	// Groups are the column keys in taxonomy order.
	Groups []string

	// Documents are the row keys in input order.
	Documents []DocumentOutcome

	// Records[d][g] is the match record for document d and group g.
	Records [][]MatchRecord

	// DocumentTotals[d] is the sum of counts across groups for document d.
	DocumentTotals []int

	// GroupTotals[g] is the sum of counts across documents for group g.
	GroupTotals []int

	// GrandTotal is the sum of all counts.
	GrandTotal int

	// Partial is true if the run was cancelled before every document
	// finished or some inputs could not be loaded.
	Partial bool
}

// Count returns the count at (document d, group g).
func (r *AnalysisReport) Count(d, g int) int {
	return r.Records[d][g].Count
}

// Counts returns the plain count matrix.
func (r *AnalysisReport) Counts() [][]int {
	out := make([][]int, len(r.Records))
	for d, row := range r.Records {
		out[d] = make([]int, len(row))
		for g, rec := range row {
			out[d][g] = rec.Count
		}
	}
	return out
}

// ByStatus returns the outcomes with the given status.
func (r *AnalysisReport) ByStatus(s DocumentStatus) []DocumentOutcome {
	var out []DocumentOutcome
	for _, o := range r.Documents {
		if o.Status == s {
			out = append(out, o)
		}
	}
	return out
}

// ComputeTotals fills the total fields from Records.
func (r *AnalysisReport) ComputeTotals() {
	r.DocumentTotals = make([]int, len(r.Records))
	r.GroupTotals = make([]int, len(r.Groups))
	r.GrandTotal = 0
	for d, row := range r.Records {
		for g, rec := range row {
			r.DocumentTotals[d] += rec.Count
			r.GroupTotals[g] += rec.Count
			r.GrandTotal += rec.Count
		}
	}
}

// Verify checks that the totals agree with the matrix and that
// every record satisfies count == len(spans).
func (r *AnalysisReport) Verify() error {
	var errs []error
	if len(r.Records) != len(r.Documents) {
		errs = append(errs, fmt.Errorf("matrix has %d rows for %d documents", len(r.Records), len(r.Documents)))
	}
	if len(r.DocumentTotals) != len(r.Records) || len(r.GroupTotals) != len(r.Groups) {
		return errors.Join(append(errs, errors.New("totals have the wrong shape"))...)
	}

	groupSums := make([]int, len(r.Groups))
	grand := 0
	for d, row := range r.Records {
		if len(row) != len(r.Groups) {
			errs = append(errs, fmt.Errorf("row %d has %d columns, want %d", d, len(row), len(r.Groups)))
			continue
		}
		sum := 0
		for g, rec := range row {
			if rec.Spans != nil && rec.Count != len(rec.Spans) {
				errs = append(errs, fmt.Errorf("record (%d,%d) count %d != %d spans", d, g, rec.Count, len(rec.Spans)))
			}
			sum += rec.Count
			groupSums[g] += rec.Count
		}
		grand += sum
		if sum != r.DocumentTotals[d] {
			errs = append(errs, fmt.Errorf("document %d total %d, matrix sums to %d", d, r.DocumentTotals[d], sum))
		}
	}
	for g, sum := range groupSums {
		if sum != r.GroupTotals[g] {
			errs = append(errs, fmt.Errorf("group %d total %d, matrix sums to %d", g, r.GroupTotals[g], sum))
		}
	}
	if grand != r.GrandTotal {
		errs = append(errs, fmt.Errorf("grand total %d, matrix sums to %d", r.GrandTotal, grand))
	}
	return errors.Join(errs...)
}
