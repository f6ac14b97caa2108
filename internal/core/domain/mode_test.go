package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want ExtractionMode
	}{
		{"local", ModeLocal},
		{"VISION", ModeVision},
		{" semantic ", ModeSemantic},
		{"", ModeLocal},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMode_Invalid(t *testing.T) {
	_, err := ParseMode("hybrid")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestExtractionResult_Helpers(t *testing.T) {
	r := &ExtractionResult{Blocks: []TextBlock{
		{Kind: BlockText, Text: "one"},
		{Kind: BlockDegraded},
		{Kind: BlockImage, Image: []byte{1}},
		{Kind: BlockTable, Text: "a\tb"},
		{Kind: BlockText, Text: "  "},
	}}
	r.AddWarning(2, WarnBlockDropped, "page 2 illegible")

	assert.Equal(t, 1, r.DroppedBlocks())
	assert.Equal(t, 1, r.PendingImages())
	assert.Equal(t, "one\n\na\tb", r.Text())
	assert.Equal(t, []Warning{{Page: 2, Code: WarnBlockDropped, Message: "page 2 illegible"}}, r.Warnings)
}
