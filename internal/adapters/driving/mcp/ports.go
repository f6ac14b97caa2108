package mcp

import (
	"github.com/spf13/afero"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
	"github.com/custodia-labs/tally/internal/core/ports/driving"
)

// Ports aggregates everything the MCP server drives.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Processor runs the pipeline.
	Processor driving.Processor

	// Taxonomy parses keyword files.
	Taxonomy driven.TaxonomyLoader

	// Ingestion exposes a running watcher's jobs and report. Optional.
	Ingestion driving.IngestionCoordinator

	// FS reads documents and taxonomy files. Defaults to the OS filesystem.
	FS afero.Fs

	// DefaultMode is used when a tool call names no mode.
	DefaultMode domain.ExtractionMode
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Processor == nil {
		return ErrMissingProcessor
	}
	if p.Taxonomy == nil {
		return ErrMissingTaxonomyLoader
	}
	if p.FS == nil {
		p.FS = afero.NewOsFs()
	}
	return nil
}
