package extractors

import (
	"github.com/custodia-labs/tally/internal/extractors/docx"
	"github.com/custodia-labs/tally/internal/extractors/html"
	"github.com/custodia-labs/tally/internal/extractors/image"
	"github.com/custodia-labs/tally/internal/extractors/pdf"
	"github.com/custodia-labs/tally/internal/extractors/plaintext"
)

// Default returns a registry with every built-in extractor.
// rasterizer may be nil; scanned PDF pages are then degraded.
func Default(rasterizer pdf.Rasterizer) *Registry {
	return NewRegistry(
		pdf.New(rasterizer),
		docx.New(),
		html.New(),
		plaintext.New(),
		image.New(),
	)
}
