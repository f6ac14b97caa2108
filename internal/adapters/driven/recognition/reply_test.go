package recognition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tally/internal/core/domain"
)

func TestParseSemanticReply(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		text    string
		quality *float64
		hints   []domain.EntityHint
	}{
		{
			name:    "direct JSON",
			reply:   `{"text": "Trái phiếu xanh", "quality_score": 8}`,
			text:    "Trái phiếu xanh",
			quality: ptr(0.8),
		},
		{
			name:  "fenced block",
			reply: "Here you go:\n```json\n{\"text\": \"green bond\", \"entities\": [{\"text\": \"green bond\", \"group\": \"esg\", \"count\": 2}]}\n```\nDone.",
			text:  "green bond",
			hints: []domain.EntityHint{{Text: "green bond", GroupID: "esg", Count: 2}},
		},
		{
			name:    "first object span",
			reply:   `Result: {"text": "bond fund", "quality_score": 10} (end)`,
			text:    "bond fund",
			quality: ptr(1.0),
		},
		{
			name:    "legacy 0-100 score",
			reply:   `{"text": "x", "quality_score": 85}`,
			text:    "x",
			quality: ptr(0.85),
		},
		{
			name:    "plain quality layout",
			reply:   "QUALITY_SCORE: 90\nTEXT:\nNgân hàng Nhà nước\nViệt Nam",
			text:    "Ngân hàng Nhà nước\nViệt Nam",
			quality: ptr(0.9),
		},
		{
			name:  "not JSON at all",
			reply: "  just the text  ",
			text:  "just the text",
		},
		{
			name:  "entities without count or text",
			reply: `{"text": "t", "entities": [{"text": "a", "group": "g"}, {"group": "g", "count": 3}]}`,
			text:  "t",
			hints: []domain.EntityHint{{Text: "a", GroupID: "g", Count: 1}},
		},
		{
			name:  "quality as string is ignored",
			reply: `{"text": "t", "quality_score": "high"}`,
			text:  "t",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSemanticReply(tt.reply)
			require.NotNil(t, got)
			assert.Equal(t, tt.text, got.Text)
			assert.Equal(t, tt.hints, got.Hints)
			if tt.quality == nil {
				assert.Nil(t, got.Quality)
			} else {
				require.NotNil(t, got.Quality)
				assert.InDelta(t, *tt.quality, *got.Quality, 1e-9)
			}
		})
	}
}

func TestScaleClamps(t *testing.T) {
	assert.Equal(t, 0.0, *scale(-3))
	assert.Equal(t, 1.0, *scale(1000))
	assert.Equal(t, 0.5, *scale(5))
}

func TestSemanticPrompt(t *testing.T) {
	assert.Contains(t, SemanticPrompt(nil), `Leave "entities" empty`)

	p := SemanticPrompt([]domain.KeywordGroup{{ID: "esg", Variants: []string{"green bond", "ESG"}}})
	assert.Contains(t, p, "esg: green bond, ESG")
	assert.Contains(t, p, `"quality_score"`)
}

func ptr(f float64) *float64 { return &f }
