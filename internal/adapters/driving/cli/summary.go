package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/custodia-labs/tally/internal/core/domain"
)

// Summary palette.
var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorMuted   = lipgloss.Color("#6C7086")
	colorSuccess = lipgloss.Color("#A6E3A1")
	colorWarning = lipgloss.Color("#F9E2AF")
	colorError   = lipgloss.Color("#F38BA8")
)

// maxNameWidth caps the document column on narrow terminals.
const maxNameWidth = 48

// isTerminal reports whether w is an interactive terminal, and its width.
func isTerminal(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0, true
	}
	return width, true
}

// printSummary writes the count matrix as a table, followed by the
// documents that failed or were only partly read.
func printSummary(w io.Writer, r *domain.AnalysisReport) {
	re := lipgloss.NewRenderer(w)
	width, tty := isTerminal(w)

	title := re.NewStyle().Bold(true).Foreground(colorPrimary)
	muted := re.NewStyle().Foreground(colorMuted)
	status := map[domain.DocumentStatus]lipgloss.Style{
		domain.StatusSucceeded: re.NewStyle().Foreground(colorSuccess),
		domain.StatusPartial:   re.NewStyle().Foreground(colorWarning),
		domain.StatusFailed:    re.NewStyle().Foreground(colorError),
	}

	heading := fmt.Sprintf("%d document(s), %d group(s), mode %s", len(r.Documents), len(r.Groups), r.Mode)
	if r.Partial {
		heading += " (partial)"
	}
	fmt.Fprintln(w, title.Render(heading))

	headers := append([]string{"Document", "Status"}, r.Groups...)
	headers = append(headers, "Total")

	nameWidth := maxNameWidth
	if tty && width > 0 && width/3 < nameWidth {
		nameWidth = max(width/3, 12)
	}

	t := table.New().
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := re.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return s.Bold(true)
			case row == len(r.Documents):
				return s.Bold(true)
			case col == 1 && row < len(r.Documents):
				return status[r.Documents[row].Status].Padding(0, 1)
			case col >= 2:
				return s.Align(lipgloss.Right)
			}
			return s
		})
	if tty {
		t = t.Border(lipgloss.RoundedBorder()).BorderStyle(muted)
	} else {
		t = t.Border(lipgloss.ASCIIBorder())
	}

	for d, doc := range r.Documents {
		row := []string{truncate(doc.Filename, nameWidth), string(doc.Status)}
		for g := range r.Groups {
			row = append(row, strconv.Itoa(r.Count(d, g)))
		}
		row = append(row, strconv.Itoa(r.DocumentTotals[d]))
		t = t.Row(row...)
	}
	totals := []string{"Total", ""}
	for _, n := range r.GroupTotals {
		totals = append(totals, strconv.Itoa(n))
	}
	totals = append(totals, strconv.Itoa(r.GrandTotal))
	t = t.Row(totals...)

	fmt.Fprintln(w, t.Render())

	for _, doc := range r.Documents {
		switch {
		case doc.Status == domain.StatusFailed:
			fmt.Fprintln(w, status[domain.StatusFailed].Render("failed:"), doc.Filename, muted.Render(doc.Reason))
		case len(doc.Warnings) > 0:
			fmt.Fprintln(w, status[domain.StatusPartial].Render("warnings:"), doc.Filename,
				muted.Render(fmt.Sprintf("(%d)", len(doc.Warnings))))
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// matrixJSON is the --json rendering of a report.
type matrixJSON struct {
	Mode        string         `json:"mode"`
	Groups      []string       `json:"groups"`
	Documents   []documentJSON `json:"documents"`
	GroupTotals map[string]int `json:"group_totals"`
	GrandTotal  int            `json:"grand_total"`
	Partial     bool           `json:"partial"`
}

type documentJSON struct {
	Filename   string         `json:"filename"`
	Status     string         `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	TextLength int            `json:"text_length"`
	Counts     map[string]int `json:"counts"`
	Variants   map[string]int `json:"variants,omitempty"`
	Total      int            `json:"total"`
	Warnings   []string       `json:"warnings,omitempty"`
}

func newMatrixJSON(r *domain.AnalysisReport) matrixJSON {
	out := matrixJSON{
		Mode:        string(r.Mode),
		Groups:      r.Groups,
		Documents:   make([]documentJSON, len(r.Documents)),
		GroupTotals: make(map[string]int, len(r.Groups)),
		GrandTotal:  r.GrandTotal,
		Partial:     r.Partial,
	}
	for g, id := range r.Groups {
		out.GroupTotals[id] = r.GroupTotals[g]
	}
	for d, doc := range r.Documents {
		row := documentJSON{
			Filename:   doc.Filename,
			Status:     string(doc.Status),
			Reason:     doc.Reason,
			TextLength: doc.TextLength,
			Counts:     make(map[string]int, len(r.Groups)),
			Total:      r.DocumentTotals[d],
		}
		for g, id := range r.Groups {
			rec := r.Records[d][g]
			row.Counts[id] = rec.Count
			for v, n := range rec.Variants {
				if row.Variants == nil {
					row.Variants = make(map[string]int)
				}
				row.Variants[v] += n
			}
		}
		for _, w := range doc.Warnings {
			row.Warnings = append(row.Warnings, w.Code+": "+w.Message)
		}
		out.Documents[d] = row
	}
	return out
}
