package recognition

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/tally/internal/core/domain"
)

// RecognitionPrompt asks for a verbatim transcription of an image.
const RecognitionPrompt = `Transcribe all text in this image exactly as written.
Keep every word, number and symbol. Preserve Vietnamese diacritics exactly.
Keep line breaks. Do not summarise, translate or add commentary.
If the image contains no text, reply with an empty string.`

const semanticPrompt = `Extract the complete text of this document for keyword analysis.
Rules:
- Extract every page in order. Do not skip, summarise or paraphrase anything.
- Keep headers, footers, tables (cell by cell), captions and footnotes.
- Preserve Vietnamese diacritics exactly and keep line breaks.
%s
Reply with a single JSON object and nothing else:
{"text": "<full extracted text>", "quality_score": <0-10, how legible the source was>, "entities": [{"text": "<surface form>", "group": "<group id>", "count": <occurrences>}]}`

// SemanticPrompt builds the whole-document extraction prompt. When groups
// are given the service is asked to tag candidate entities for them.
func SemanticPrompt(groups []domain.KeywordGroup) string {
	if len(groups) == 0 {
		return fmt.Sprintf(semanticPrompt, "- Leave \"entities\" empty.")
	}
	var b strings.Builder
	b.WriteString("- In \"entities\", list occurrences of these keyword groups:\n")
	for _, g := range groups {
		fmt.Fprintf(&b, "  %s: %s\n", g.ID, strings.Join(g.Variants, ", "))
	}
	return fmt.Sprintf(semanticPrompt, strings.TrimRight(b.String(), "\n"))
}
