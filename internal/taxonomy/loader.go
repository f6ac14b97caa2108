// Package taxonomy loads keyword taxonomies from CSV, XLSX and
// "Group | kw1, kw2" text files.
package taxonomy

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// DefaultGroup collects text-file lines that have no group column.
const DefaultGroup = "0"

// Ensure Loader implements the interface.
var _ driven.TaxonomyLoader = (*Loader)(nil)

// Loader parses taxonomy files. The format is chosen by extension.
type Loader struct{}

// New creates a Loader.
func New() *Loader {
	return &Loader{}
}

// LoadFile reads path from fs and parses it.
func (l *Loader) LoadFile(fs afero.Fs, path string) (*domain.Taxonomy, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrTaxonomyInvalid, path, err)
	}
	return l.Load(filepath.Base(path), data)
}

// Load parses data according to the extension of name.
func (l *Loader) Load(name string, data []byte) (*domain.Taxonomy, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var (
		rows []row
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
		rows, err = parseCSV(data)
	case ".xlsx":
		rows, err = parseXLSX(data)
	case ".txt", ".md":
		rows, err = parseText(data)
	default:
		return nil, fmt.Errorf("%w: unsupported taxonomy format %q", domain.ErrTaxonomyInvalid, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrTaxonomyInvalid, name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s has no keyword groups", domain.ErrTaxonomyInvalid, name)
	}

	groups := make([]domain.KeywordGroup, 0, len(rows))
	for _, r := range rows {
		groups = append(groups, domain.KeywordGroup{ID: r.group, Variants: splitVariants(r.keywords)})
	}
	tax, err := domain.NewTaxonomy(groups)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return tax, nil
}

// row is one group line before validation.
type row struct {
	group    string
	keywords string
}

func splitVariants(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseCSV(data []byte) ([]row, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	// An unquoted keyword list under a comma delimiter spills into
	// extra fields; fold them back into the keyword column.
	return fromTable(records, r.Comma == ',')
}

// sniffDelimiter picks ';' when the first line uses it, ',' otherwise.
func sniffDelimiter(data []byte) rune {
	first, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.Count(first, []byte(";")) > 0 {
		return ';'
	}
	return ','
}

func parseXLSX(data []byte) ([]row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return fromTable(records, false)
}

// fromTable maps table records onto rows. A header naming a "group"
// column and a "keyword(s)" or "variants" column selects those columns;
// otherwise the first two columns are used. With joinTail, cells past
// the keyword column are folded back into it when nothing follows it.
func fromTable(records [][]string, joinTail bool) ([]row, error) {
	groupCol, kwCol := 0, 1
	if len(records) > 0 {
		if g, k, ok := headerColumns(records[0]); ok {
			groupCol, kwCol = g, k
			joinTail = joinTail && kwCol == len(records[0])-1
			records = records[1:]
		}
	}

	var rows []row
	for i, rec := range records {
		if blank(rec) {
			continue
		}
		if groupCol >= len(rec) || kwCol >= len(rec) {
			return nil, fmt.Errorf("row %d: want a group and a keyword column, got %d column(s)", i+1, len(rec))
		}
		keywords := rec[kwCol]
		if joinTail && len(rec) > kwCol+1 {
			keywords = strings.Join(rec[kwCol:], ",")
		}
		rows = append(rows, row{group: strings.TrimSpace(rec[groupCol]), keywords: keywords})
	}
	return rows, nil
}

func headerColumns(rec []string) (group, keywords int, ok bool) {
	group, keywords = -1, -1
	for i, cell := range rec {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "group", "group id", "group_id":
			group = i
		case "keywords", "keyword", "variants":
			keywords = i
		}
	}
	return group, keywords, group >= 0 && keywords >= 0
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseText reads "Group | kw1, kw2" lines. Markdown table rows with
// outer pipes work too. Lines without a separator join DefaultGroup.
func parseText(data []byte) ([]row, error) {
	var (
		rows  []row
		loose []string
	)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "|") {
			line = strings.TrimSuffix(strings.TrimPrefix(line, "|"), "|")
			if isRule(line) {
				continue
			}
		}

		group, keywords, found := strings.Cut(line, "|")
		if !found {
			loose = append(loose, line)
			continue
		}
		group = strings.TrimSpace(group)
		if _, _, isHeader := headerColumns([]string{group, keywords}); isHeader {
			continue
		}
		rows = append(rows, row{group: group, keywords: keywords})
	}
	if len(loose) > 0 {
		rows = append(rows, row{group: DefaultGroup, keywords: strings.Join(loose, ",")})
	}
	return rows, nil
}

// isRule reports whether line is a markdown table separator like "---|:--".
func isRule(line string) bool {
	return strings.Trim(line, "-:| \t") == "" && strings.Contains(line, "-")
}
