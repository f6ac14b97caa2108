package ocr

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// Ensure Local implements the interface.
var _ driven.OCRStrategy = (*Local)(nil)

// Local recognises images with the tesseract engine.
type Local struct {
	runner    driven.CommandRunner
	path      string
	languages string
}

// NewLocal creates the offline strategy.
func NewLocal(runner driven.CommandRunner, cfg domain.OCRConfig) *Local {
	path := cfg.TesseractPath
	if path == "" {
		path = "tesseract"
	}
	langs := cfg.Languages
	if langs == "" {
		langs = "eng"
	}
	return &Local{runner: runner, path: path, languages: langs}
}

// Mode returns domain.ModeLocal.
func (l *Local) Mode() domain.ExtractionMode {
	return domain.ModeLocal
}

// ExtractText pipes the block image through tesseract in TSV mode and
// rebuilds lines from the word rows.
func (l *Local) ExtractText(ctx context.Context, block domain.TextBlock) (*driven.OCRResult, error) {
	if len(block.Image) == 0 {
		return nil, fmt.Errorf("%w: block has no image", domain.ErrInvalidInput)
	}

	out, err := l.runner.Run(ctx, block.Image, l.path, "stdin", "stdout", "-l", l.languages, "tsv")
	if err != nil {
		return nil, fmt.Errorf("tesseract page %d: %w", block.Page, err)
	}

	text, confidence := parseTSV(out)
	return &driven.OCRResult{Text: Clean(text), Confidence: confidence}, nil
}

// parseTSV reads tesseract's TSV output. Word rows (level 5) are grouped
// into lines by block/paragraph/line number; a new paragraph starts a
// blank line. Confidence is the mean word confidence scaled to [0,1].
func parseTSV(out []byte) (string, *float64) {
	var (
		b        strings.Builder
		lastLine string
		lastPara string
		sum      float64
		words    int
	)

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 12 || fields[0] != "5" {
			continue
		}
		word := strings.TrimSpace(fields[11])
		if word == "" {
			continue
		}

		para := fields[2] + "." + fields[3]
		line := para + "." + fields[4]
		switch {
		case lastLine == "":
		case para != lastPara:
			b.WriteString("\n\n")
		case line != lastLine:
			b.WriteString("\n")
		default:
			b.WriteString(" ")
		}
		b.WriteString(word)
		lastLine, lastPara = line, para

		if conf, err := strconv.ParseFloat(fields[10], 64); err == nil && conf >= 0 {
			sum += conf
			words++
		}
	}

	if words == 0 {
		return b.String(), nil
	}
	avg := sum / float64(words) / 100
	if avg > 1 {
		avg = 1
	}
	return b.String(), &avg
}
