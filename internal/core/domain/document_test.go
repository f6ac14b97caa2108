package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocument_Fields(t *testing.T) {
	doc := Document{
		SourceID: "/inbox/q1.pdf",
		Filename: "q1.pdf",
		MIMEHint: "application/pdf",
		Content:  []byte("%PDF-1.7"),
	}

	assert.Equal(t, "/inbox/q1.pdf", doc.SourceID)
	assert.Equal(t, "q1.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.MIMEHint)
	assert.Equal(t, []byte("%PDF-1.7"), doc.Content)
}

func TestTextBlock_IsDegraded(t *testing.T) {
	tests := []struct {
		kind BlockKind
		want bool
	}{
		{BlockText, false},
		{BlockTable, false},
		{BlockImage, false},
		{BlockDegraded, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, TextBlock{Kind: tt.kind}.IsDegraded())
		})
	}
}

func TestExtractionResult_Empty(t *testing.T) {
	r := &ExtractionResult{}

	assert.Empty(t, r.Text())
	assert.Zero(t, r.DroppedBlocks())
	assert.Zero(t, r.PendingImages())
}

func TestExtractionResult_TextKeepsOrder(t *testing.T) {
	r := &ExtractionResult{Blocks: []TextBlock{
		{Kind: BlockText, Text: "page one", Page: 1},
		{Kind: BlockDegraded, Page: 2},
		{Kind: BlockText, Text: "page three", Page: 3},
	}}

	assert.Equal(t, "page one\n\npage three", r.Text())
}

func TestWarningCodes_Unique(t *testing.T) {
	codes := []string{
		WarnOCRFallback, WarnBlockDropped, WarnCorrupt, WarnEncoding, WarnEncodingRepair,
		WarnPageCap, WarnHintMismatch, WarnRasterUnavail, WarnServiceDegraded,
	}
	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		assert.False(t, seen[c], c)
		seen[c] = true
	}
}
