package report

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/tally/internal/core/domain"
)

// Matrix is the count matrix read back from a rendered workbook.
type Matrix struct {
	Groups         []string
	Documents      []string
	Counts         [][]int
	DocumentTotals []int
	GroupTotals    []int
	GrandTotal     int
}

// Read parses the Counts sheet of a workbook produced by XLSX.Render.
func Read(data []byte) (*Matrix, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %w", domain.ErrInvalidInput, err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetCounts)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrInvalidInput, SheetCounts, err)
	}
	// Header plus the totals row at minimum.
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: %s sheet has %d rows", domain.ErrInvalidInput, SheetCounts, len(rows))
	}

	head := rows[0]
	if len(head) < 2 || head[0] != headerDocument || head[len(head)-1] != labelTotal {
		return nil, fmt.Errorf("%w: unexpected %s header %v", domain.ErrInvalidInput, SheetCounts, head)
	}
	m := &Matrix{Groups: append([]string(nil), head[1:len(head)-1]...)}
	width := len(head)

	body := rows[1 : len(rows)-1]
	for i, row := range body {
		if len(row) == 0 {
			return nil, fmt.Errorf("%w: empty row %d", domain.ErrInvalidInput, i+2)
		}
		values, err := ints(row[1:], width-1)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", domain.ErrInvalidInput, i+2, err)
		}
		m.Documents = append(m.Documents, row[0])
		m.Counts = append(m.Counts, values[:len(m.Groups)])
		m.DocumentTotals = append(m.DocumentTotals, values[len(m.Groups)])
	}

	totals, err := ints(rows[len(rows)-1][1:], width-1)
	if err != nil {
		return nil, fmt.Errorf("%w: totals row: %w", domain.ErrInvalidInput, err)
	}
	m.GroupTotals = totals[:len(m.Groups)]
	m.GrandTotal = totals[len(m.Groups)]
	return m, nil
}

// ints parses n cells; trailing cells that excelize trimmed read as zero.
func ints(cells []string, n int) ([]int, error) {
	out := make([]int, n)
	for i := 0; i < n && i < len(cells); i++ {
		if cells[i] == "" {
			continue
		}
		v, err := strconv.Atoi(cells[i])
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i+2, err)
		}
		out[i] = v
	}
	return out, nil
}
