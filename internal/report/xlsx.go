package report

import (
	"fmt"
	"math"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// Sheet names.
const (
	SheetCounts       = "Counts"
	SheetKeywords     = "Keywords"
	SheetStandardized = "Standardized"
	SheetStatus       = "Status"
	SheetWarnings     = "Warnings"
)

const (
	headerDocument = "Document"
	labelTotal     = "Total"
)

// Ensure XLSX implements the interface.
var _ driven.ReportRenderer = (*XLSX)(nil)

// XLSX renders reports as Excel workbooks.
type XLSX struct{}

// NewXLSX creates an XLSX renderer.
func NewXLSX() *XLSX {
	return &XLSX{}
}

// Extension returns ".xlsx".
func (x *XLSX) Extension() string {
	return ".xlsx"
}

// Render writes every sheet of the workbook and returns its bytes.
func (x *XLSX) Render(report *domain.AnalysisReport) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("%w: nil report", domain.ErrInvalidInput)
	}
	if err := report.Verify(); err != nil {
		return nil, fmt.Errorf("inconsistent report: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	w := &workbook{f: f}
	if err := f.SetSheetName("Sheet1", SheetCounts); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetKeywords, SheetStandardized, SheetStatus, SheetWarnings} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	if err := w.init(); err != nil {
		return nil, err
	}

	w.counts(report)
	w.keywords(report)
	w.standardized(report)
	w.status(report)
	w.warnings(report)
	if w.err != nil {
		return nil, w.err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// workbook accumulates the first write error so the sheet writers stay flat.
type workbook struct {
	f    *excelize.File
	bold int
	err  error
}

func (w *workbook) init() error {
	style, err := w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	w.bold = style
	return nil
}

// row writes values starting at column A of the given 1-based row.
func (w *workbook) row(sheet string, n int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("write %s row %d: %w", sheet, n, err)
	}
}

// header writes a bold first row and widens the first column.
func (w *workbook) header(sheet string, values ...any) {
	w.row(sheet, 1, values...)
	if w.err != nil {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(values), 1)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetCellStyle(sheet, "A1", last, w.bold); err != nil {
		w.err = err
		return
	}
	if err := w.f.SetColWidth(sheet, "A", "A", 40); err != nil {
		w.err = err
	}
}

func (w *workbook) counts(r *domain.AnalysisReport) {
	head := []any{headerDocument}
	for _, g := range r.Groups {
		head = append(head, g)
	}
	head = append(head, labelTotal)
	w.header(SheetCounts, head...)

	for d, doc := range r.Documents {
		values := []any{doc.Filename}
		for g := range r.Groups {
			values = append(values, r.Count(d, g))
		}
		values = append(values, r.DocumentTotals[d])
		w.row(SheetCounts, d+2, values...)
	}

	totals := []any{labelTotal}
	for _, t := range r.GroupTotals {
		totals = append(totals, t)
	}
	totals = append(totals, r.GrandTotal)
	n := len(r.Documents) + 2
	w.row(SheetCounts, n, totals...)
	if w.err == nil {
		cell, _ := excelize.CoordinatesToCellName(len(totals), n)
		first, _ := excelize.CoordinatesToCellName(1, n)
		w.err = w.f.SetCellStyle(SheetCounts, first, cell, w.bold)
	}
}

func (w *workbook) keywords(r *domain.AnalysisReport) {
	w.header(SheetKeywords, headerDocument, "Group", "Keyword", "Count")
	n := 2
	for d, doc := range r.Documents {
		found := false
		for g, group := range r.Groups {
			variants := r.Records[d][g].Variants
			keys := make([]string, 0, len(variants))
			for v := range variants {
				keys = append(keys, v)
			}
			sort.Strings(keys)
			for _, v := range keys {
				w.row(SheetKeywords, n, doc.Filename, group, v, variants[v])
				n++
				found = true
			}
		}
		if !found {
			w.row(SheetKeywords, n, doc.Filename, "-", "no keywords found", 0)
			n++
		}
	}
}

func (w *workbook) standardized(r *domain.AnalysisReport) {
	head := []any{headerDocument}
	for _, g := range r.Groups {
		head = append(head, g)
	}
	w.header(SheetStandardized, head...)

	for d, doc := range r.Documents {
		values := []any{doc.Filename}
		for _, score := range Standardize(r.Records[d]) {
			values = append(values, score)
		}
		w.row(SheetStandardized, d+2, values...)
	}
}

func (w *workbook) status(r *domain.AnalysisReport) {
	w.header(SheetStatus, headerDocument, "Status", "Reason", "Mode", "Blocks", "Degraded blocks", "Text length", "Warnings")
	for d, doc := range r.Documents {
		mode := doc.Mode
		if mode == "" {
			mode = r.Mode
		}
		w.row(SheetStatus, d+2,
			doc.Filename, string(doc.Status), doc.Reason, string(mode),
			doc.Blocks, doc.DroppedBlocks, doc.TextLength, len(doc.Warnings))
	}
	if r.Partial {
		w.row(SheetStatus, len(r.Documents)+3, "run incomplete", "partial")
	}
}

func (w *workbook) warnings(r *domain.AnalysisReport) {
	w.header(SheetWarnings, headerDocument, "Page", "Code", "Message")
	n := 2
	for _, doc := range r.Documents {
		for _, warn := range doc.Warnings {
			page := any(warn.Page)
			if warn.Page == 0 {
				page = ""
			}
			w.row(SheetWarnings, n, doc.Filename, page, warn.Code, warn.Message)
			n++
		}
	}
}

// Standardize scales each count in row to the largest count in the row,
// on a 0-100 scale rounded to two decimals. A row of zeros stays zero.
func Standardize(row []domain.MatchRecord) []float64 {
	largest := 0
	for _, rec := range row {
		if rec.Count > largest {
			largest = rec.Count
		}
	}
	out := make([]float64, len(row))
	if largest == 0 {
		return out
	}
	for i, rec := range row {
		out[i] = math.Round(float64(rec.Count)/float64(largest)*10000) / 100
	}
	return out
}
