package ocr

import (
	"regexp"
	"strings"
)

var (
	// A word split across an OCR line break: "trái-\nphiếu" -> "tráiphiếu".
	brokenHyphen = regexp.MustCompile(`(\p{L})[-\x{00AD}\x{2010}]\n[^\S\n]*(\p{Ll})`)

	// Runs of engine noise: stray pipes, underscores, tildes or bullets on their own.
	artifactRun = regexp.MustCompile(`(?m)^[ \t|_~\x{2022}\x{00B7}\x{00A6}]+$`)

	// Characters tesseract emits for unrecognised glyphs.
	junkGlyphs = regexp.MustCompile(`[\x{FFFD}\x{25A1}\x{25A0}]`)

	blankLines = regexp.MustCompile(`\n{3,}`)
)

// Clean removes OCR engine artifacts and rejoins words hyphenated across
// line breaks. It leaves paragraph structure for the normaliser.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\f", "\n")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = junkGlyphs.ReplaceAllString(text, "")
	text = artifactRun.ReplaceAllString(text, "")
	text = brokenHyphen.ReplaceAllString(text, "$1$2")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
