package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tally/internal/core/domain"
)

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data", "jobs.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	store, path := setupTestStore(t)

	assert.Equal(t, path, store.Path())
	assert.FileExists(t, path)

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)
}

func TestStore_SaveAndGetJob(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 9, 30, 0, 123456789, time.UTC)

	job := &domain.IngestionJob{
		ID:        "job-1",
		SourceID:  "/drop/report.pdf",
		Filename:  "report.pdf",
		State:     domain.JobQueued,
		CreatedAt: created,
		UpdatedAt: created,
	}
	require.NoError(t, store.SaveJob(ctx, job))

	got, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, *job, *got)

	job.State = domain.JobFailed
	job.AttemptCount = 3
	job.LastError = "service unavailable: timeout"
	job.Status = domain.StatusFailed
	job.UpdatedAt = created.Add(time.Minute)
	require.NoError(t, store.SaveJob(ctx, job))

	got, err = store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, got.State)
	assert.Equal(t, 3, got.AttemptCount)
	assert.Equal(t, "service unavailable: timeout", got.LastError)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.True(t, created.Add(time.Minute).Equal(got.UpdatedAt))
}

func TestStore_GetJob_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.GetJob(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.SaveJob(context.Background(), nil), domain.ErrInvalidInput)
}

func TestStore_ListJobs(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	for _, j := range []struct {
		id    string
		state domain.JobState
	}{
		{"c", domain.JobQueued},
		{"a", domain.JobSucceeded},
		{"b", domain.JobRetrying},
		{"d", domain.JobRunning},
	} {
		require.NoError(t, store.SaveJob(ctx, &domain.IngestionJob{ID: j.id, SourceID: j.id, State: j.state}))
	}
	// An update keeps the original position.
	require.NoError(t, store.SaveJob(ctx, &domain.IngestionJob{ID: "c", SourceID: "c", State: domain.JobRunning}))

	all, err := store.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, []string{"c", "a", "b", "d"}, []string{all[0].ID, all[1].ID, all[2].ID, all[3].ID})

	open, err := store.ListJobs(ctx, domain.JobQueued, domain.JobRunning, domain.JobRetrying, domain.JobRunning)
	require.NoError(t, err)
	require.Len(t, open, 3)
	assert.Equal(t, "c", open[0].ID)
	assert.Equal(t, "b", open[1].ID)

	done, err := store.ListJobs(ctx, domain.JobFailed)
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestStore_DeleteJob(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveJob(ctx, &domain.IngestionJob{ID: "x", SourceID: "x", State: domain.JobQueued}))
	require.NoError(t, store.DeleteJob(ctx, "x"))
	require.NoError(t, store.DeleteJob(ctx, "x"))

	_, err := store.GetJob(ctx, "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ReopenKeepsJobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	ctx := context.Background()

	first, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, first.SaveJob(ctx, &domain.IngestionJob{ID: "keep", SourceID: "k", State: domain.JobQueued}))
	require.NoError(t, first.Close())

	second, err := NewStore(path)
	require.NoError(t, err)
	defer second.Close()

	jobs, err := second.ListJobs(ctx, domain.JobQueued)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "keep", jobs[0].ID)
}
