// Package textnorm repairs and normalises extracted text before matching.
//
// Normalise is pure: it never fails and never does I/O. When it cannot
// tell which legacy encoding a string uses it leaves the text alone and
// reports a warning instead of guessing.
package textnorm

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/tally/internal/core/domain"
)

// Result is the output of Normalise.
type Result struct {
	// Text is NFC text with whitespace collapsed and paragraph breaks kept.
	Text string

	// Encoding is the encoding the input was decoded from.
	Encoding Encoding

	// Warnings reports repairs and ambiguous input.
	Warnings []domain.Warning
}

// ambiguousHits is the minimum number of legacy glyphs, with no clear
// winner, before an input is flagged as possibly mis-encoded.
const ambiguousHits = 3

// ambiguousDensity is the share of letters that must be legacy glyphs.
const ambiguousDensity = 0.25

var paragraphBreak = regexp.MustCompile(`\n[^\S\n]*\n\s*`)

// Normalise repairs legacy Vietnamese encodings, strips control
// characters, collapses whitespace and converts to NFC.
func Normalise(raw string) Result {
	text, enc, warnings := repairEncoding(raw)
	text = norm.NFC.String(text)
	text = collapseWhitespace(text)
	return Result{Text: text, Encoding: enc, Warnings: warnings}
}

// String is Normalise without the metadata.
func String(raw string) string {
	return Normalise(raw).Text
}

func repairEncoding(raw string) (string, Encoding, []domain.Warning) {
	invalid := !utf8.ValidString(raw)
	text := raw
	enc := EncodingUTF8
	if invalid {
		text = decodeCP1252(raw)
		enc = EncodingCP1252
	} else if fixed, ok := repairMojibake(raw); ok {
		return fixed, EncodingMojibake, []domain.Warning{repaired(EncodingMojibake)}
	}

	if isASCII(text) || hasNativeVietnamese(text) {
		return text, enc, nil
	}

	vni, vniEv := decodeVNI(text)
	tcvn, tcvnEv := decodeTCVN3(text)

	// Valid UTF-8 needs structural evidence; raw legacy bytes need only some.
	vniOK := vniEv.strong > 0 || (invalid && vniEv.found())
	tcvnOK := tcvnEv.strong > 0 || (invalid && tcvnEv.found())

	switch {
	case vniOK && tcvnOK:
		vs, ts := vniEv.score(), tcvnEv.score()
		switch {
		case vs > ts && vs > 0:
			return vni, EncodingVNI, []domain.Warning{repaired(EncodingVNI)}
		case ts > vs && ts > 0:
			return tcvn, EncodingTCVN3, []domain.Warning{repaired(EncodingTCVN3)}
		default:
			return text, enc, []domain.Warning{ambiguous(vniEv.weak + vniEv.strong)}
		}
	case vniOK && vniEv.score() > 0:
		return vni, EncodingVNI, []domain.Warning{repaired(EncodingVNI)}
	case tcvnOK && tcvnEv.score() > 0:
		return tcvn, EncodingTCVN3, []domain.Warning{repaired(EncodingTCVN3)}
	}

	hits := tcvnEv.weak + tcvnEv.strong
	if hits >= ambiguousHits && float64(hits) >= ambiguousDensity*float64(letterCount(text)) {
		return text, enc, []domain.Warning{ambiguous(hits)}
	}
	return text, enc, nil
}

func repaired(enc Encoding) domain.Warning {
	return domain.Warning{
		Code:    domain.WarnEncodingRepair,
		Message: fmt.Sprintf("text repaired from %s", enc),
	}
}

func ambiguous(hits int) domain.Warning {
	return domain.Warning{
		Code:    domain.WarnEncoding,
		Message: fmt.Sprintf("text may use a legacy Vietnamese encoding (%d suspect glyphs); left unchanged", hits),
	}
}

func hasNativeVietnamese(s string) bool {
	for _, r := range s {
		if isNativeVietnamese(r) {
			return true
		}
	}
	return false
}

func letterCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// collapseWhitespace turns control characters into spaces, collapses
// whitespace runs inside paragraphs, and keeps one blank line between
// paragraphs.
func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case r == '\u200B' || r == '\u200C' || r == '\u200D' || r == '\uFEFF' || r == '\u00AD':
			return -1
		case r == '\r' || r == '\f' || r == '\v' || r == '\u2028' || r == '\u2029':
			return '\n'
		case unicode.IsControl(r):
			return ' '
		}
		return r
	}, s)

	paras := paragraphBreak.Split(s, -1)
	out := make([]string, 0, len(paras))
	for _, p := range paras {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}
