package textnorm

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// Encoding names the byte encoding a string was repaired from.
type Encoding string

const (
	EncodingUTF8     Encoding = "utf-8"
	EncodingCP1252   Encoding = "windows-1252"
	EncodingTCVN3    Encoding = "tcvn3"
	EncodingVNI      Encoding = "vni"
	EncodingMojibake Encoding = "utf-8-as-windows-1252"
)

// tcvn3 maps the Latin-1 reading of TCVN3 (ABC) bytes to Unicode.
var tcvn3 = map[rune]rune{
	'¡': 'Ă', '¢': 'Â', '£': 'Ê', '¤': 'Ô', '¥': 'Ơ', '¦': 'Ư', '§': 'Đ',
	'¨': 'ă', '©': 'â', 'ª': 'ê', '«': 'ô', '¬': 'ơ', '\u00AD': 'ư', '®': 'đ',
	'µ': 'à', '¶': 'ả', '·': 'ã', '¸': 'á', '¹': 'ạ',
	'»': 'ằ', '¼': 'ẳ', '½': 'ẵ', '¾': 'ắ', 'Æ': 'ặ',
	'Ç': 'ầ', 'È': 'ẩ', 'É': 'ẫ', 'Ê': 'ấ', 'Ë': 'ậ',
	'Ì': 'è', 'Î': 'ẻ', 'Ï': 'ẽ', 'Ð': 'é', 'Ñ': 'ẹ',
	'Ò': 'ề', 'Ó': 'ể', 'Ô': 'ễ', 'Õ': 'ế', 'Ö': 'ệ',
	'×': 'ì', 'Ø': 'ỉ', 'Ü': 'ĩ', 'Ý': 'í', 'Þ': 'ị',
	'ß': 'ò', 'á': 'ỏ', 'â': 'õ', 'ã': 'ó', 'ä': 'ọ',
	'å': 'ồ', 'æ': 'ổ', 'ç': 'ỗ', 'è': 'ố', 'é': 'ộ',
	'ê': 'ờ', 'ë': 'ở', 'ì': 'ỡ', 'í': 'ớ', 'î': 'ợ',
	'ï': 'ù', 'ñ': 'ủ', 'ò': 'ũ', 'ó': 'ú', 'ô': 'ụ',
	'õ': 'ừ', 'ö': 'ử', '÷': 'ữ', 'ø': 'ứ', 'ù': 'ự',
	'ú': 'ỳ', 'û': 'ỷ', 'ü': 'ỹ', 'ý': 'ý', 'þ': 'ỵ',
}

// tcvn3Symbols are TCVN3 letters whose Latin-1 glyph is not a letter.
// Seeing one next to a letter is strong evidence of TCVN3.
var tcvn3Symbols = map[rune]bool{
	'¡': true, '¢': true, '£': true, '¤': true, '¥': true, '¦': true, '§': true,
	'¨': true, '©': true, 'ª': true, '«': true, '¬': true, '®': true,
	'µ': true, '¶': true, '·': true, '¸': true, '¹': true,
	'»': true, '¼': true, '½': true, '¾': true, '×': true, '÷': true,
}

type modifier uint8

const (
	modNone modifier = iota
	modCircumflex
	modBreve
	modHorn
)

type tone uint8

const (
	toneNone tone = iota
	toneAcute
	toneGrave
	toneHook
	toneTilde
	toneDot
)

var modifierMarks = [...]rune{modNone: 0, modCircumflex: '\u0302', modBreve: '\u0306', modHorn: '\u031B'}
var toneMarks = [...]rune{toneNone: 0, toneAcute: '\u0301', toneGrave: '\u0300', toneHook: '\u0309', toneTilde: '\u0303', toneDot: '\u0323'}

type vniMark struct {
	mod  modifier
	tone tone
}

// vniMarks are the VNI-Windows bytes that follow a base vowel.
var vniMarks = map[rune]vniMark{
	'ù': {modNone, toneAcute}, 'Ù': {modNone, toneAcute},
	'ø': {modNone, toneGrave}, 'Ø': {modNone, toneGrave},
	'û': {modNone, toneHook}, 'Û': {modNone, toneHook},
	'õ': {modNone, toneTilde}, 'Õ': {modNone, toneTilde},
	'ï': {modNone, toneDot}, 'Ï': {modNone, toneDot},
	'â': {modCircumflex, toneNone}, 'Â': {modCircumflex, toneNone},
	'á': {modCircumflex, toneAcute}, 'Á': {modCircumflex, toneAcute},
	'à': {modCircumflex, toneGrave}, 'À': {modCircumflex, toneGrave},
	'å': {modCircumflex, toneHook}, 'Å': {modCircumflex, toneHook},
	'ã': {modCircumflex, toneTilde}, 'Ã': {modCircumflex, toneTilde},
	'ä': {modCircumflex, toneDot}, 'Ä': {modCircumflex, toneDot},
	'ê': {modBreve, toneNone}, 'Ê': {modBreve, toneNone},
	'é': {modBreve, toneAcute}, 'É': {modBreve, toneAcute},
	'è': {modBreve, toneGrave}, 'È': {modBreve, toneGrave},
	'ú': {modBreve, toneHook}, 'Ú': {modBreve, toneHook},
	'ü': {modBreve, toneTilde}, 'Ü': {modBreve, toneTilde},
	'ë': {modBreve, toneDot}, 'Ë': {modBreve, toneDot},
}

// vniStandalone are VNI bytes that stand for a whole letter.
var vniStandalone = map[rune]rune{
	'ô': 'ơ', 'Ô': 'Ơ', 'ö': 'ư', 'Ö': 'Ư',
	'ñ': 'đ', 'Ñ': 'Đ',
	'æ': 'ỉ', 'Æ': 'Ỉ', 'ó': 'ĩ', 'Ó': 'Ĩ', 'ò': 'ị', 'Ò': 'Ị',
}

func isBaseVowel(r rune) bool {
	switch unicode.ToLower(r) {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}

func modifierAllowed(base rune, m modifier) bool {
	switch m {
	case modNone:
		return true
	case modCircumflex:
		b := unicode.ToLower(base)
		return b == 'a' || b == 'e' || b == 'o'
	case modBreve:
		return unicode.ToLower(base) == 'a'
	default:
		return false
	}
}

// isNativeVietnamese reports whether r only occurs in Unicode Vietnamese text.
func isNativeVietnamese(r rune) bool {
	if r >= 0x1EA0 && r <= 0x1EF9 {
		return true
	}
	switch r {
	case 'ă', 'Ă', 'đ', 'Đ', 'ơ', 'Ơ', 'ư', 'Ư', 'ĩ', 'Ĩ', 'ũ', 'Ũ':
		return true
	}
	return false
}

// evidence collects legacy-encoding signals for one candidate decoding.
type evidence struct {
	strong    int
	weak      int
	anomalies int
	residual  int
}

func (e evidence) score() int {
	return 2*e.strong + e.weak - 2*e.anomalies - e.residual
}

func (e evidence) found() bool {
	return e.strong+e.weak > 0
}

// decodeVNI recomposes VNI-Windows mark sequences. It returns the
// decoded text and the signals seen while decoding.
func decodeVNI(s string) (string, evidence) {
	runes := []rune(s)
	out := make([]rune, 0, len(runes))
	var ev evidence

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if isBaseVowel(r) && i+1 < len(runes) {
			if m, ok := vniMarks[runes[i+1]]; ok && modifierAllowed(r, m.mod) {
				t := m.tone
				j := i + 2
				if m.mod != modNone && t == toneNone && j < len(runes) {
					if tm, ok := vniMarks[runes[j]]; ok && tm.mod == modNone {
						t = tm.tone
						j++
					}
				}
				if m.mod != modNone {
					ev.strong++
				} else {
					ev.weak++
				}
				out = append(out, compose(r, m.mod, t)...)
				i = j - 1
				continue
			}
		}

		if sub, ok := vniStandalone[r]; ok {
			n := 1
			if (sub == 'ơ' || sub == 'Ơ' || sub == 'ư' || sub == 'Ư') && i+1 < len(runes) {
				if tm, ok := vniMarks[runes[i+1]]; ok && tm.mod == modNone {
					sub = []rune(norm.NFC.String(string([]rune{sub, toneMarks[tm.tone]})))[0]
					n = 2
					ev.strong++
				}
			}
			// ươ written as "öô" is unmistakable.
			if (sub == 'ư' || sub == 'Ư') && i+1 < len(runes) && (runes[i+1] == 'ô' || runes[i+1] == 'Ô') {
				ev.strong++
			}
			ev.weak++
			out = append(out, sub)
			i += n - 1
			continue
		}

		if _, ok := vniMarks[r]; ok {
			ev.residual++
		}
		out = append(out, r)
	}

	decoded := string(out)
	ev.anomalies = countAnomalies([]rune(decoded), nil)
	return decoded, ev
}

func compose(base rune, m modifier, t tone) []rune {
	seq := []rune{base}
	if m != modNone {
		seq = append(seq, modifierMarks[m])
	}
	if t != toneNone {
		seq = append(seq, toneMarks[t])
	}
	return []rune(norm.NFC.String(string(seq)))
}

// decodeTCVN3 maps TCVN3 glyphs one-to-one, so it never leaves residue.
func decodeTCVN3(s string) (string, evidence) {
	runes := []rune(s)
	var ev evidence

	ev.strong = countAnomalies(runes, tcvn3)
	for i, r := range runes {
		if _, ok := tcvn3[r]; !ok {
			continue
		}
		if tcvn3Symbols[r] && nextToLetter(runes, i) {
			ev.strong++
		} else {
			ev.weak++
		}
	}

	out := make([]rune, len(runes))
	for i, r := range runes {
		if sub, ok := tcvn3[r]; ok {
			out[i] = sub
		} else {
			out[i] = r
		}
	}

	ev.anomalies = countAnomalies(out, nil)
	return string(out), ev
}

func nextToLetter(runes []rune, i int) bool {
	return (i > 0 && unicode.IsLetter(runes[i-1])) || (i+1 < len(runes) && unicode.IsLetter(runes[i+1]))
}

// countAnomalies counts non-ASCII capitals wedged between lower-case
// letters, e.g. the Ö in "ViÖt". When only is non-nil, just the runes
// it contains are counted.
func countAnomalies(runes []rune, only map[rune]rune) int {
	n := 0
	for i := 1; i+1 < len(runes); i++ {
		r := runes[i]
		if r < utf8.RuneSelf || !unicode.IsUpper(r) {
			continue
		}
		if only != nil {
			if _, ok := only[r]; !ok {
				continue
			}
		}
		if unicode.IsLower(runes[i-1]) && unicode.IsLower(runes[i+1]) {
			n++
		}
	}
	return n
}

// repairMojibake undoes UTF-8 text that was decoded as Windows-1252.
func repairMojibake(s string) (string, bool) {
	if isASCII(s) {
		return s, false
	}
	raw, err := charmap.Windows1252.NewEncoder().String(s)
	if err != nil || raw == s || !utf8.ValidString(raw) || isASCII(raw) {
		return s, false
	}
	return raw, true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func decodeCP1252(s string) string {
	out, err := charmap.Windows1252.NewDecoder().String(s)
	if err != nil {
		return string([]rune(s))
	}
	return out
}
