// Package report renders an AnalysisReport as an XLSX workbook, reads the
// count matrix back from one, and stores artifacts on a filesystem.
//
// The workbook has five sheets:
//
//	Counts        one row per document, one column per group, with totals
//	Keywords      per-variant counts
//	Standardized  each count scaled to the document's largest group (0-100)
//	Status        outcome, reason and block statistics per document
//	Warnings      every extraction warning with its page
package report
