// Package ocr implements the three text-recognition strategies.
//
// Local runs tesseract through a CommandRunner and never leaves the host.
// Vision sends page images to a TextRecognitionService and falls back to
// Local when the service keeps failing. Semantic hands whole documents to
// a SemanticExtractionService and recognises single pages the same way.
//
// One strategy is built per run by New and applied to every document.
package ocr
