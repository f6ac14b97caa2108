// Package html extracts readable text from HTML documents.
//
// Scripts, styles and other non-content elements are removed. Block-level
// elements become separate text blocks and table rows become tabular
// blocks with cells separated by tabs. The charset is taken from a BOM,
// the Content-Type hint or a <meta> tag before parsing.
package html
