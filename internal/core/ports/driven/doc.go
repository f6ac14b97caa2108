// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - FormatExtractor: Turns container bytes into text blocks
//   - ExtractorRegistry: Detects formats and selects extractors
//   - OCRStrategy: Recognises text in image blocks (one per run)
//   - TaxonomyLoader: Parses keyword files
//   - ReportRenderer / ReportSink: Serialise and store the report
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - TextRecognitionService: Required only in vision mode.
//   - SemanticExtractionService: Required only in semantic mode.
//   - JobStore: Without a persistent store, jobs live in memory.
//   - FileSource / DocumentLoader / WebFetcher: Input collaborators.
//   - Metrics: Defaults to NopMetrics.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, extractor, or connector package
package driven
