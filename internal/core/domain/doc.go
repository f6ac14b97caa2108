// Package domain defines the core business entities for tally.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Raw bytes handed over by a file source
//   - ExtractionResult: Ordered text blocks pulled out of a Document
//   - Taxonomy: The keyword groups counted in one run
//   - MatchRecord: Counts and spans for one (document, group) pair
//   - AnalysisReport: The cross-document count matrix
//   - IngestionJob: A queued unit of unattended work
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
