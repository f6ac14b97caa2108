package textnorm

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var foldCache sync.Map // rune -> rune

// FoldRune lower-cases r and, if stripDiacritics is set, maps it to its
// base letter (ệ -> e, đ -> d). One rune in always gives one rune out,
// so offsets computed on folded text stay valid on the original.
func FoldRune(r rune, stripDiacritics bool) rune {
	r = unicode.ToLower(r)
	if !stripDiacritics || r < utf8.RuneSelf {
		return r
	}
	if v, ok := foldCache.Load(r); ok {
		return v.(rune)
	}

	base := r
	switch r {
	case 'đ':
		base = 'd'
	case 'ð':
		base = 'd'
	default:
		if d := norm.NFD.String(string(r)); d != "" {
			first, _ := utf8.DecodeRuneInString(d)
			if !unicode.Is(unicode.Mn, first) {
				base = first
			}
		}
	}

	foldCache.Store(r, base)
	return base
}

// Fold applies FoldRune to every rune of s after NFC normalisation.
func Fold(s string, stripDiacritics bool) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteRune(FoldRune(r, stripDiacritics))
	}
	return b.String()
}
