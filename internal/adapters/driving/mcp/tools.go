package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/afero"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driving"
)

// inlineFilename names the document built from inline text.
const inlineFilename = "inline.txt"

// CountInput is the input schema for the count_keywords tool.
type CountInput struct {
	TaxonomyPath string   `json:"taxonomy_path" jsonschema:"path to a CSV, XLSX, TXT or MD keyword taxonomy"`
	Files        []string `json:"files,omitempty" jsonschema:"paths of documents to analyse"`
	Text         string   `json:"text,omitempty" jsonschema:"inline text to analyse as one extra document"`
	Mode         string   `json:"mode,omitempty" jsonschema:"extraction mode: local, vision or semantic"`
}

// CountOutput is the output schema for the count_keywords tool.
type CountOutput struct {
	Groups      []string         `json:"groups"`
	Documents   []DocumentOutput `json:"documents"`
	GroupTotals map[string]int   `json:"group_totals"`
	GrandTotal  int              `json:"grand_total"`
	Partial     bool             `json:"partial,omitempty"`
}

// DocumentOutput is one row of the count matrix.
type DocumentOutput struct {
	Filename string         `json:"filename"`
	Status   string         `json:"status"`
	Reason   string         `json:"reason,omitempty"`
	Counts   map[string]int `json:"counts"`
	Total    int            `json:"total"`
	Warnings []string       `json:"warnings,omitempty"`
}

// TaxonomyInput is the input schema for the check_taxonomy tool.
type TaxonomyInput struct {
	TaxonomyPath string `json:"taxonomy_path" jsonschema:"path to the keyword taxonomy file"`
}

// TaxonomyOutput lists the parsed groups.
type TaxonomyOutput struct {
	Groups []GroupOutput `json:"groups"`
	Count  int           `json:"count"`
}

// GroupOutput is one keyword group.
type GroupOutput struct {
	ID       string   `json:"id"`
	Variants []string `json:"variants"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "count_keywords",
		Description: "Count taxonomy keyword groups in documents or inline text and return the count matrix",
	}, s.handleCount)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "check_taxonomy",
		Description: "Parse and validate a keyword taxonomy file",
	}, s.handleCheckTaxonomy)
}

// handleCount handles the count_keywords tool invocation.
func (s *Server) handleCount(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CountInput,
) (*mcp.CallToolResult, CountOutput, error) {
	if len(input.Files) == 0 && input.Text == "" {
		return nil, CountOutput{}, fmt.Errorf("%w: give files or text", domain.ErrInvalidInput)
	}

	taxonomy, err := s.loadTaxonomy(input.TaxonomyPath)
	if err != nil {
		return nil, CountOutput{}, err
	}

	docs := make([]domain.Document, 0, len(input.Files)+1)
	var unloaded []domain.DocumentOutcome
	for _, path := range input.Files {
		data, err := afero.ReadFile(s.ports.FS, path)
		if err != nil {
			// Reported as a failed row; the other files are still counted.
			unloaded = append(unloaded, domain.DocumentOutcome{
				SourceID: path,
				Filename: filepath.Base(path),
				Reason:   fmt.Sprintf("read %s: %v", path, err),
			})
			continue
		}
		docs = append(docs, domain.Document{
			SourceID: path,
			Filename: filepath.Base(path),
			MIMEHint: mimetype.Detect(data).String(),
			Content:  data,
		})
	}
	if input.Text != "" {
		docs = append(docs, domain.Document{
			SourceID: inlineFilename,
			Filename: inlineFilename,
			MIMEHint: "text/plain; charset=utf-8",
			Content:  []byte(input.Text),
		})
	}

	mode := domain.ExtractionMode(input.Mode)
	if mode == "" {
		mode = s.ports.DefaultMode
	}

	result, err := s.ports.Processor.Process(ctx, driving.ProcessRequest{
		Mode:      mode,
		Taxonomy:  taxonomy,
		Documents: docs,
		Unloaded:  unloaded,
	})
	if err != nil {
		return nil, CountOutput{}, err
	}
	return nil, countOutput(result.Report), nil
}

// handleCheckTaxonomy handles the check_taxonomy tool invocation.
func (s *Server) handleCheckTaxonomy(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input TaxonomyInput,
) (*mcp.CallToolResult, TaxonomyOutput, error) {
	taxonomy, err := s.loadTaxonomy(input.TaxonomyPath)
	if err != nil {
		return nil, TaxonomyOutput{}, err
	}

	groups := taxonomy.Groups()
	out := TaxonomyOutput{Groups: make([]GroupOutput, len(groups)), Count: len(groups)}
	for i, g := range groups {
		out.Groups[i] = GroupOutput{ID: g.ID, Variants: g.Variants}
	}
	return nil, out, nil
}

func (s *Server) loadTaxonomy(path string) (*domain.Taxonomy, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: taxonomy_path is required", domain.ErrTaxonomyInvalid)
	}
	data, err := afero.ReadFile(s.ports.FS, path)
	if err != nil {
		return nil, errors.Join(domain.ErrTaxonomyInvalid, fmt.Errorf("read %s: %w", path, err))
	}
	return s.ports.Taxonomy.Load(filepath.Base(path), data)
}

func countOutput(r *domain.AnalysisReport) CountOutput {
	out := CountOutput{
		Groups:      r.Groups,
		Documents:   make([]DocumentOutput, len(r.Documents)),
		GroupTotals: make(map[string]int, len(r.Groups)),
		GrandTotal:  r.GrandTotal,
		Partial:     r.Partial,
	}
	for g, id := range r.Groups {
		out.GroupTotals[id] = r.GroupTotals[g]
	}
	for d, doc := range r.Documents {
		row := DocumentOutput{
			Filename: doc.Filename,
			Status:   string(doc.Status),
			Reason:   doc.Reason,
			Counts:   make(map[string]int, len(r.Groups)),
			Total:    r.DocumentTotals[d],
		}
		for g, id := range r.Groups {
			row.Counts[id] = r.Count(d, g)
		}
		for _, w := range doc.Warnings {
			row.Warnings = append(row.Warnings, w.Code+": "+w.Message)
		}
		out.Documents[d] = row
	}
	return out
}
