package pdf

import (
	"context"
	"fmt"
	"strconv"

	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// Ensure Pdftoppm implements the interface.
var _ Rasterizer = (*Pdftoppm)(nil)

// Pdftoppm rasterises pages with poppler's pdftoppm, streaming the PDF
// through stdin and reading the PNG from stdout.
type Pdftoppm struct {
	runner driven.CommandRunner
	path   string
	dpi    int
}

// NewPdftoppm creates a rasterizer. Empty path and zero DPI use defaults.
func NewPdftoppm(runner driven.CommandRunner, path string, dpi int) *Pdftoppm {
	if path == "" {
		path = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 200
	}
	return &Pdftoppm{runner: runner, path: path, dpi: dpi}
}

// Rasterize renders one page as PNG.
func (p *Pdftoppm) Rasterize(ctx context.Context, content []byte, page int) ([]byte, string, error) {
	n := strconv.Itoa(page)
	out, err := p.runner.Run(ctx, content, p.path,
		"-f", n, "-l", n,
		"-r", strconv.Itoa(p.dpi),
		"-png", "-singlefile",
		"-",
	)
	if err != nil {
		return nil, "", fmt.Errorf("pdftoppm page %d: %w", page, err)
	}
	if len(out) == 0 {
		return nil, "", fmt.Errorf("pdftoppm page %d: empty output", page)
	}
	return out, "image/png", nil
}
