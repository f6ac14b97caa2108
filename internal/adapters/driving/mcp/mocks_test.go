package mcp

import (
	"context"
	"sync"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driving"
)

// mockProcessor counts "esg" as the number of documents, fails unloaded
// inputs and records the request.
type mockProcessor struct {
	mu   sync.Mutex
	last driving.ProcessRequest
	err  error
}

func (m *mockProcessor) Process(_ context.Context, req driving.ProcessRequest) (*driving.ProcessResult, error) {
	m.mu.Lock()
	m.last = req
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	groups := req.Taxonomy.GroupIDs()
	report := &domain.AnalysisReport{Mode: req.Mode, Groups: groups}
	for _, doc := range req.Documents {
		row := make([]domain.MatchRecord, len(groups))
		for g, id := range groups {
			row[g] = domain.MatchRecord{GroupID: id}
		}
		row[0].Count = 1
		report.Documents = append(report.Documents, domain.DocumentOutcome{
			SourceID: doc.SourceID,
			Filename: doc.Filename,
			Status:   domain.StatusSucceeded,
			Mode:     req.Mode,
			Warnings: []domain.Warning{{Code: domain.WarnEncoding, Message: "guessed"}},
		})
		report.Records = append(report.Records, row)
	}
	for _, o := range req.Unloaded {
		o.Status = domain.StatusFailed
		report.Documents = append(report.Documents, o)
		report.Records = append(report.Records, make([]domain.MatchRecord, len(groups)))
		report.Partial = true
	}
	report.ComputeTotals()
	return &driving.ProcessResult{Report: report}, nil
}

func (m *mockProcessor) ProcessDocument(_ context.Context, mode domain.ExtractionMode, doc *domain.Document, _ *domain.Taxonomy) domain.DocumentOutcome {
	return domain.DocumentOutcome{SourceID: doc.SourceID, Filename: doc.Filename, Mode: mode, Status: domain.StatusSucceeded}
}

func (m *mockProcessor) request() driving.ProcessRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// mockIngestion serves fixed jobs and an empty report.
type mockIngestion struct {
	jobs []domain.IngestionJob
	err  error
}

func (m *mockIngestion) Start(context.Context) error { return nil }
func (m *mockIngestion) Stop() error                 { return nil }

func (m *mockIngestion) Jobs(context.Context) ([]domain.IngestionJob, error) {
	return m.jobs, m.err
}

func (m *mockIngestion) Report() *domain.AnalysisReport {
	r := &domain.AnalysisReport{Groups: []string{"esg"}}
	r.ComputeTotals()
	return r
}
