package recognition

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

var (
	fenced      = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	qualityLine = regexp.MustCompile(`(?mi)^\s*QUALITY_SCORE:\s*(\d+(?:\.\d+)?)\s*$`)
	textMarker  = regexp.MustCompile(`(?mi)^\s*TEXT:\s*`)
)

// ParseSemanticReply reads a model reply into a SemanticResult. The JSON
// object is taken from the reply itself, then from a fenced code block,
// then from the outermost {...} span. A reply in the plain
// "QUALITY_SCORE: n / TEXT:" layout is accepted too. Anything else is
// used verbatim as the text.
func ParseSemanticReply(reply string) *driven.SemanticResult {
	if obj, ok := findJSON(reply); ok {
		return fromJSON(obj)
	}
	if m := qualityLine.FindStringSubmatch(reply); m != nil {
		score, _ := strconv.ParseFloat(m[1], 64)
		text := qualityLine.ReplaceAllString(reply, "")
		text = textMarker.ReplaceAllString(text, "")
		return &driven.SemanticResult{Text: strings.TrimSpace(text), Quality: scale(score)}
	}
	return &driven.SemanticResult{Text: strings.TrimSpace(reply)}
}

func findJSON(reply string) (gjson.Result, bool) {
	reply = strings.TrimSpace(reply)
	candidates := []string{reply}
	if m := fenced.FindStringSubmatch(reply); m != nil {
		candidates = append(candidates, m[1])
	}
	if start, end := strings.Index(reply, "{"), strings.LastIndex(reply, "}"); start >= 0 && end > start {
		candidates = append(candidates, reply[start:end+1])
	}
	for _, c := range candidates {
		if !gjson.Valid(c) {
			continue
		}
		if r := gjson.Parse(c); r.IsObject() {
			return r, true
		}
	}
	return gjson.Result{}, false
}

func fromJSON(obj gjson.Result) *driven.SemanticResult {
	out := &driven.SemanticResult{Text: strings.TrimSpace(obj.Get("text").String())}
	if q := obj.Get("quality_score"); q.Exists() && q.Type == gjson.Number {
		out.Quality = scale(q.Float())
	}
	obj.Get("entities").ForEach(func(_, e gjson.Result) bool {
		text := strings.TrimSpace(e.Get("text").String())
		if text == "" {
			return true
		}
		count := int(e.Get("count").Int())
		if count < 1 {
			count = 1
		}
		out.Hints = append(out.Hints, domain.EntityHint{
			Text:    text,
			GroupID: strings.TrimSpace(e.Get("group").String()),
			Count:   count,
		})
		return true
	})
	return out
}

// scale maps a 0-10 score (or a legacy 0-100 score) onto [0,1].
func scale(score float64) *float64 {
	switch {
	case score > 10:
		score /= 100
	default:
		score /= 10
	}
	score = min(max(score, 0), 1)
	return &score
}
