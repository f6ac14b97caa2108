package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for tally resources.
	uriScheme = "tally://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "jobs",
		Name:        "jobs",
		Description: "Ingestion jobs known to the running watcher",
		MIMEType:    "application/json",
	}, s.handleJobsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "jobs/{jobId}",
		Name:        "job",
		Description: "State of one ingestion job",
		MIMEType:    "application/json",
	}, s.handleJobResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "report",
		Name:        "report",
		Description: "Count matrix of the documents the watcher has finished",
		MIMEType:    "application/json",
	}, s.handleReportResource)
}

type jobInfo struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	State     string    `json:"state"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	Status    string    `json:"status,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// handleJobsResource returns every job, or an empty list without a watcher.
func (s *Server) handleJobsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Ingestion == nil {
		return jsonResult(req.Params.URI, []jobInfo{})
	}

	jobs, err := s.ports.Ingestion.Jobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}

	infos := make([]jobInfo, len(jobs))
	for i, j := range jobs {
		infos[i] = jobInfo{
			ID:        j.ID,
			Filename:  j.Filename,
			State:     string(j.State),
			Attempts:  j.AttemptCount,
			LastError: j.LastError,
			Status:    string(j.Status),
			UpdatedAt: j.UpdatedAt,
		}
	}
	return jsonResult(req.Params.URI, infos)
}

// handleJobResource returns a single job.
func (s *Server) handleJobResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Ingestion == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// tally://jobs/{jobId}
	jobID := extractJobID(req.Params.URI)
	if jobID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	jobs, err := s.ports.Ingestion.Jobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	for _, j := range jobs {
		if j.ID == jobID {
			return jsonResult(req.Params.URI, jobInfo{
				ID:        j.ID,
				Filename:  j.Filename,
				State:     string(j.State),
				Attempts:  j.AttemptCount,
				LastError: j.LastError,
				Status:    string(j.Status),
				UpdatedAt: j.UpdatedAt,
			})
		}
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

// handleReportResource returns the watcher's report so far.
func (s *Server) handleReportResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Ingestion == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return jsonResult(req.Params.URI, countOutput(s.ports.Ingestion.Report()))
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractJobID extracts the job ID from a URI like tally://jobs/{jobId}.
func extractJobID(uri string) string {
	const prefix = uriScheme + "jobs/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
