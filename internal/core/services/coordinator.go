package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
	"github.com/custodia-labs/tally/internal/core/ports/driving"
	"github.com/custodia-labs/tally/internal/logger"
)

// Ensure Coordinator implements the interface.
var _ driving.IngestionCoordinator = (*Coordinator)(nil)

// CoordinatorConfig wires a Coordinator.
type CoordinatorConfig struct {
	Source    driven.FileSource
	Loader    driven.DocumentLoader
	Jobs      driven.JobStore
	Processor driving.Processor
	Metrics   driven.Metrics

	// Watcher is optional; without it only the start-up sweep runs. A
	// SeedableWatcher also settles the files the sweep finds.
	Watcher driven.FileWatcher

	Taxonomy *domain.Taxonomy
	Mode     domain.ExtractionMode

	Workers     int
	MaxAttempts int
	Retry       domain.RetryPolicy // backoff curve between attempts
}

// Coordinator feeds files from a source through the processor with a
// fixed worker pool. Jobs wait in a FIFO queue while every worker is busy
// and their state is persisted at each transition.
type Coordinator struct {
	cfg CoordinatorConfig
	agg *Aggregator

	mu      sync.Mutex
	queue   []string                        // job ids, FIFO
	jobs    map[string]*domain.IngestionJob // non-terminal jobs by id
	active  map[string]string               // source id -> job id
	delays  map[string]retry.Backoff        // job id -> retry curve
	wake    chan struct{}
	cancel  context.CancelFunc
	running bool

	wg sync.WaitGroup
}

// NewCoordinator creates a coordinator.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Metrics == nil {
		cfg.Metrics = driven.NopMetrics{}
	}
	return &Coordinator{
		cfg:    cfg,
		agg:    NewAggregator(cfg.Mode, cfg.Taxonomy, 0),
		jobs:   make(map[string]*domain.IngestionJob),
		active: make(map[string]string),
		delays: make(map[string]retry.Backoff),
		wake:   make(chan struct{}, 1),
	}
}

// Start resumes unfinished jobs from the store, sweeps the source for
// pending files and starts the workers and watcher. It returns once
// everything is running.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("coordinator already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.mu.Unlock()

	logger.Section("Ingestion")

	if err := c.resume(ctx); err != nil {
		cancel()
		c.setStopped()
		return err
	}

	if err := c.sweep(ctx); err != nil {
		cancel()
		c.setStopped()
		return err
	}

	for i := 0; i < c.cfg.Workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx)
	}

	if c.cfg.Watcher != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			err := c.cfg.Watcher.Watch(ctx, func(sourceID string) {
				c.Submit(ctx, sourceID, "")
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("watcher stopped: %v", err)
			}
		}()
	}

	logger.Info("ingestion started with %d worker(s), %d job(s) queued", c.cfg.Workers, c.queued())
	return nil
}

// Stop cancels the workers and watcher and waits for them. A job
// interrupted mid-run goes back to queued; queued jobs are left as they are.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	cancel := c.cancel
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
	left := c.queued()
	c.setStopped()
	logger.Info("ingestion stopped, %d job(s) left queued", left)
	return nil
}

// Jobs returns every job the store knows about.
func (c *Coordinator) Jobs(ctx context.Context) ([]domain.IngestionJob, error) {
	return c.cfg.Jobs.ListJobs(ctx)
}

// Report returns a snapshot of the documents finished so far.
func (c *Coordinator) Report() *domain.AnalysisReport {
	return c.agg.Snapshot()
}

// Submit enqueues a job for sourceID unless one is already in flight.
// It reports whether a new job was created.
func (c *Coordinator) Submit(ctx context.Context, sourceID, filename string) bool {
	c.mu.Lock()
	if _, busy := c.active[sourceID]; busy {
		c.mu.Unlock()
		logger.Debug("%s already has a job", sourceID)
		return false
	}
	if filename == "" {
		filename = sourceID
	}
	now := time.Now()
	job := &domain.IngestionJob{
		ID:        uuid.NewString(),
		SourceID:  sourceID,
		Filename:  filename,
		State:     domain.JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.jobs[job.ID] = job
	c.active[sourceID] = job.ID
	snapshot := *job
	c.mu.Unlock()

	if err := c.cfg.Jobs.SaveJob(ctx, &snapshot); err != nil {
		logger.Error("save job %s: %v", job.ID, err)
	}
	c.cfg.Metrics.JobTransition(domain.JobQueued)
	logger.Info("queued %s (job %s)", filename, job.ID)
	c.enqueue(job.ID)
	return true
}

// sweep picks up files that arrived while nothing was watching. With a
// SeedableWatcher they wait out the quiet period like any new file,
// since one may still be mid-write.
func (c *Coordinator) sweep(ctx context.Context) error {
	var ids []string
	if lister, ok := c.cfg.Source.(driven.PendingLister); ok {
		found, err := lister.PendingIDs(ctx)
		if err != nil {
			return fmt.Errorf("list pending: %w", err)
		}
		ids = found
	} else {
		docs, err := c.cfg.Source.ListPending(ctx)
		if err != nil {
			return fmt.Errorf("list pending: %w", err)
		}
		for _, doc := range docs {
			ids = append(ids, doc.SourceID)
		}
	}

	if seeder, ok := c.cfg.Watcher.(driven.SeedableWatcher); ok {
		var fresh []string
		c.mu.Lock()
		for _, id := range ids {
			if _, busy := c.active[id]; !busy {
				fresh = append(fresh, id)
			}
		}
		c.mu.Unlock()
		seeder.Seed(fresh...)
		if len(fresh) > 0 {
			logger.Info("%d pending file(s) settling", len(fresh))
		}
		return nil
	}
	for _, id := range ids {
		c.Submit(ctx, id, "")
	}
	return nil
}

func (c *Coordinator) resume(ctx context.Context) error {
	unfinished, err := c.cfg.Jobs.ListJobs(ctx, domain.JobQueued, domain.JobRunning, domain.JobRetrying)
	if err != nil {
		return fmt.Errorf("list unfinished jobs: %w", err)
	}

	for i := range unfinished {
		job := unfinished[i]
		if job.State != domain.JobQueued {
			job.State = domain.JobQueued
			job.UpdatedAt = time.Now()
			if err := c.cfg.Jobs.SaveJob(ctx, &job); err != nil {
				return fmt.Errorf("requeue job %s: %w", job.ID, err)
			}
		}
		c.mu.Lock()
		c.jobs[job.ID] = &job
		c.active[job.SourceID] = job.ID
		c.mu.Unlock()
		c.enqueue(job.ID)
	}
	if len(unfinished) > 0 {
		logger.Info("resumed %d unfinished job(s)", len(unfinished))
	}
	return nil
}

func (c *Coordinator) enqueue(id string) {
	c.mu.Lock()
	c.queue = append(c.queue, id)
	c.mu.Unlock()
	c.signal()
}

func (c *Coordinator) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Coordinator) dequeue() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return "", false
	}
	id := c.queue[0]
	c.queue = c.queue[1:]
	if len(c.queue) > 0 {
		c.signal()
	}
	return id, true
}

func (c *Coordinator) queued() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// setStopped drops the in-memory queue. Every queued job is already in
// the store and is picked up again by the next Start.
func (c *Coordinator) setStopped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.cancel = nil
	c.queue = nil
	c.jobs = make(map[string]*domain.IngestionJob)
	c.active = make(map[string]string)
	c.delays = make(map[string]retry.Backoff)
}

func (c *Coordinator) worker(ctx context.Context) {
	defer c.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		id, ok := c.dequeue()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-c.wake:
			}
			continue
		}
		c.runJob(ctx, id)
	}
}

func (c *Coordinator) runJob(ctx context.Context, id string) {
	c.mu.Lock()
	job, ok := c.jobs[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.transition(ctx, job, domain.JobRunning, func(j *domain.IngestionJob) { j.AttemptCount++ })

	outcome, err := c.attempt(ctx, job)
	if ctx.Err() != nil {
		// Stopped mid-run: keep the job for the next start.
		c.transition(context.WithoutCancel(ctx), job, domain.JobQueued, nil)
		return
	}

	switch {
	case err == nil && outcome.Status != domain.StatusFailed:
		c.finish(ctx, job, domain.JobSucceeded, outcome, "")

	case c.snapshot(job).AttemptCount < c.cfg.MaxAttempts && retryable(err, outcome):
		reason := failureReason(err, outcome)
		c.transition(ctx, job, domain.JobRetrying, func(j *domain.IngestionJob) { j.LastError = reason })
		delay := c.nextDelay(job.ID)
		logger.Warn("%s attempt %d failed, retrying in %s: %s", job.Filename, c.snapshot(job).AttemptCount, delay, reason)
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				// Left in retrying; resumed as queued on the next start.
			case <-timer.C:
				c.enqueue(id)
			}
		}()

	default:
		if err != nil {
			outcome = domain.DocumentOutcome{
				SourceID: job.SourceID,
				Filename: job.Filename,
				Mode:     c.cfg.Mode,
				Status:   domain.StatusFailed,
				Reason:   err.Error(),
			}
		}
		c.finish(ctx, job, domain.JobFailed, outcome, failureReason(err, outcome))
	}
}

func (c *Coordinator) attempt(ctx context.Context, job *domain.IngestionJob) (domain.DocumentOutcome, error) {
	doc, err := c.cfg.Loader.Load(ctx, job.SourceID)
	if err != nil {
		return domain.DocumentOutcome{}, fmt.Errorf("load %s: %w", job.SourceID, err)
	}
	if doc.Filename != "" {
		c.mu.Lock()
		job.Filename = doc.Filename
		c.mu.Unlock()
	}
	return c.cfg.Processor.ProcessDocument(ctx, c.cfg.Mode, doc, c.cfg.Taxonomy), nil
}

// finish records a terminal state, reports the outcome and acks the source.
func (c *Coordinator) finish(ctx context.Context, job *domain.IngestionJob, state domain.JobState, outcome domain.DocumentOutcome, lastError string) {
	c.transition(ctx, job, state, func(j *domain.IngestionJob) {
		j.Status = outcome.Status
		if lastError != "" {
			j.LastError = lastError
		}
	})
	c.agg.Append(outcome)

	if err := c.cfg.Source.Ack(ctx, job.SourceID); err != nil {
		logger.Warn("ack %s: %v", job.SourceID, err)
	}

	c.mu.Lock()
	delete(c.jobs, job.ID)
	delete(c.delays, job.ID)
	if c.active[job.SourceID] == job.ID {
		delete(c.active, job.SourceID)
	}
	c.mu.Unlock()

	if state == domain.JobFailed {
		logger.Error("%s failed after %d attempt(s): %s", job.Filename, c.snapshot(job).AttemptCount, lastError)
	} else {
		logger.Info("%s %s", job.Filename, outcome.Status)
	}
}

// transition moves job to state, applies mutate and persists it.
func (c *Coordinator) transition(ctx context.Context, job *domain.IngestionJob, state domain.JobState, mutate func(*domain.IngestionJob)) {
	c.mu.Lock()
	if !domain.CanTransition(job.State, state) {
		logger.Debug("job %s: ignoring %s -> %s", job.ID, job.State, state)
		c.mu.Unlock()
		return
	}
	job.State = state
	job.UpdatedAt = time.Now()
	if mutate != nil {
		mutate(job)
	}
	snapshot := *job
	c.mu.Unlock()

	if err := c.cfg.Jobs.SaveJob(ctx, &snapshot); err != nil {
		logger.Error("save job %s: %v", job.ID, err)
	}
	c.cfg.Metrics.JobTransition(state)
	logger.Debug("job %s -> %s", job.ID, state)
}

func (c *Coordinator) snapshot(job *domain.IngestionJob) domain.IngestionJob {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *job
}

// nextDelay returns the wait before the job's next attempt. Each job
// follows its own exponential curve from Retry.InitialBackoff, capped at
// Retry.MaxBackoff.
func (c *Coordinator) nextDelay(jobID string) time.Duration {
	if c.cfg.Retry.InitialBackoff <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.delays[jobID]
	if !ok {
		b = retry.NewExponential(c.cfg.Retry.InitialBackoff)
		if c.cfg.Retry.MaxBackoff > 0 {
			b = retry.WithCappedDuration(c.cfg.Retry.MaxBackoff, b)
		}
		c.delays[jobID] = b
	}
	d, _ := b.Next()
	return d
}

// retryable reports whether another attempt might succeed. Load errors
// and documents whose every block was degraded are retried; format
// problems are not.
func retryable(err error, outcome domain.DocumentOutcome) bool {
	if err != nil {
		return !errors.Is(err, domain.ErrNotFound)
	}
	return outcome.Status == domain.StatusFailed && outcome.Blocks > 0
}

func failureReason(err error, outcome domain.DocumentOutcome) string {
	if err != nil {
		return err.Error()
	}
	return outcome.Reason
}
