// Package mcp provides an MCP (Model Context Protocol) server adapter for tally.
// It lets AI assistants count taxonomy keywords in documents and inspect
// ingestion jobs.
package mcp

import "errors"

// ErrMissingProcessor is returned when the processor is not provided.
var ErrMissingProcessor = errors.New("mcp: processor is required")

// ErrMissingTaxonomyLoader is returned when the taxonomy loader is not provided.
var ErrMissingTaxonomyLoader = errors.New("mcp: taxonomy loader is required")
