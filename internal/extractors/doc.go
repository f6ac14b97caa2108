// Package extractors turns document bytes into ordered text blocks.
//
// Each sub-package handles one container format:
//
//   - pdf: embedded text layer per page, scanned pages become image blocks
//   - docx: paragraphs and tables in reading order
//   - html: markup, scripts and styles stripped
//   - plaintext: charset-detected text split into paragraphs
//   - image: validated raster images handed to OCR
//
// The Registry detects a document's format from its byte signature and
// selects the matching extractor.
package extractors
