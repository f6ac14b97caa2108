package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/taxonomy"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func serverWithIngestion(t *testing.T, ing *mockIngestion) *Server {
	t.Helper()
	ports := &Ports{Processor: &mockProcessor{}, Taxonomy: taxonomy.New()}
	if ing != nil {
		ports.Ingestion = ing
	}
	server, err := NewServer(ports)
	require.NoError(t, err)
	return server
}

func TestExtractJobID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid job URI", "tally://jobs/job-1", "job-1"},
		{"invalid prefix", "file://jobs/job-1", ""},
		{"jobs list", "tally://jobs", ""},
		{"empty URI", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJobID(tt.uri))
		})
	}
}

func TestServer_handleJobsResource(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no watcher gives empty list", func(t *testing.T) {
		res, err := serverWithIngestion(t, nil).handleJobsResource(ctx, readRequest("tally://jobs"))
		require.NoError(t, err)
		assert.Equal(t, "[]", res.Contents[0].Text)
	})

	t.Run("lists jobs", func(t *testing.T) {
		ing := &mockIngestion{jobs: []domain.IngestionJob{
			{ID: "j1", Filename: "a.pdf", State: domain.JobFailed, AttemptCount: 3, LastError: "timeout", UpdatedAt: now},
			{ID: "j2", Filename: "b.pdf", State: domain.JobQueued, UpdatedAt: now},
		}}
		res, err := serverWithIngestion(t, ing).handleJobsResource(ctx, readRequest("tally://jobs"))
		require.NoError(t, err)

		var infos []jobInfo
		require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &infos))
		require.Len(t, infos, 2)
		assert.Equal(t, "failed", infos[0].State)
		assert.Equal(t, 3, infos[0].Attempts)
		assert.Equal(t, "timeout", infos[0].LastError)
		assert.Equal(t, "application/json", res.Contents[0].MIMEType)
	})

	t.Run("store error", func(t *testing.T) {
		_, err := serverWithIngestion(t, &mockIngestion{err: errors.New("db locked")}).handleJobsResource(ctx, readRequest("tally://jobs"))
		assert.ErrorContains(t, err, "db locked")
	})
}

func TestServer_handleJobResource(t *testing.T) {
	ctx := context.Background()
	ing := &mockIngestion{jobs: []domain.IngestionJob{{ID: "j1", Filename: "a.pdf", State: domain.JobSucceeded}}}
	server := serverWithIngestion(t, ing)

	res, err := server.handleJobResource(ctx, readRequest("tally://jobs/j1"))
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, `"state": "succeeded"`)

	_, err = server.handleJobResource(ctx, readRequest("tally://jobs/j9"))
	assert.Error(t, err)

	_, err = serverWithIngestion(t, nil).handleJobResource(ctx, readRequest("tally://jobs/j1"))
	assert.Error(t, err)
}

func TestServer_handleReportResource(t *testing.T) {
	ctx := context.Background()

	res, err := serverWithIngestion(t, &mockIngestion{}).handleReportResource(ctx, readRequest("tally://report"))
	require.NoError(t, err)
	var out CountOutput
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &out))
	assert.Equal(t, []string{"esg"}, out.Groups)
	assert.Zero(t, out.GrandTotal)

	_, err = serverWithIngestion(t, nil).handleReportResource(ctx, readRequest("tally://report"))
	assert.Error(t, err)
}
