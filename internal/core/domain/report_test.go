package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(group string, count int) MatchRecord {
	spans := make([]Span, count)
	for i := range spans {
		spans[i] = Span{Start: i * 10, End: i*10 + 5}
	}
	return MatchRecord{GroupID: group, Count: count, Spans: spans}
}

func TestAnalysisReport_ComputeTotals(t *testing.T) {
	r := &AnalysisReport{
		Groups:    []string{"a", "b"},
		Documents: []DocumentOutcome{{Filename: "one"}, {Filename: "two"}},
		Records: [][]MatchRecord{
			{rec("a", 2), rec("b", 1)},
			{rec("a", 0), rec("b", 4)},
		},
	}

	r.ComputeTotals()

	assert.Equal(t, []int{3, 4}, r.DocumentTotals)
	assert.Equal(t, []int{2, 5}, r.GroupTotals)
	assert.Equal(t, 7, r.GrandTotal)
	assert.Equal(t, [][]int{{2, 1}, {0, 4}}, r.Counts())
	require.NoError(t, r.Verify())
}

func TestAnalysisReport_VerifyDetectsDrift(t *testing.T) {
	r := &AnalysisReport{
		Groups:    []string{"a"},
		Documents: []DocumentOutcome{{Filename: "one"}},
		Records:   [][]MatchRecord{{rec("a", 2)}},
	}
	r.ComputeTotals()

	r.Records[0][0] = rec("a", 3)

	assert.Error(t, r.Verify())
}

func TestAnalysisReport_VerifyCountSpanMismatch(t *testing.T) {
	r := &AnalysisReport{
		Groups:    []string{"a"},
		Documents: []DocumentOutcome{{Filename: "one"}},
		Records:   [][]MatchRecord{{{GroupID: "a", Count: 2, Spans: []Span{{0, 1}}}}},
	}
	r.ComputeTotals()

	assert.Error(t, r.Verify())
}

func TestDocumentOutcome_Completeness(t *testing.T) {
	assert.InDelta(t, 0.75, DocumentOutcome{Blocks: 4, DroppedBlocks: 1}.Completeness(), 1e-9)
	assert.InDelta(t, 1.0, DocumentOutcome{Status: StatusSucceeded}.Completeness(), 1e-9)
	assert.InDelta(t, 0.0, DocumentOutcome{Status: StatusFailed}.Completeness(), 1e-9)
}

func TestAnalysisReport_ByStatus(t *testing.T) {
	r := &AnalysisReport{Documents: []DocumentOutcome{
		{Filename: "a", Status: StatusSucceeded},
		{Filename: "b", Status: StatusFailed},
		{Filename: "c", Status: StatusFailed},
	}}

	failed := r.ByStatus(StatusFailed)

	require.Len(t, failed, 2)
	assert.Equal(t, "b", failed[0].Filename)
}

func TestSpan_Overlaps(t *testing.T) {
	assert.True(t, Span{0, 10}.Overlaps(Span{6, 15}))
	assert.False(t, Span{0, 6}.Overlaps(Span{6, 15}))
	assert.Equal(t, 4, Span{2, 6}.Len())
}
