package domain

import "time"

// JobState is the lifecycle state of an IngestionJob.
type JobState string

const (
	// JobQueued means the job waits for a free worker.
	JobQueued JobState = "queued"

	// JobRunning means a worker is processing the job.
	JobRunning JobState = "running"

	// JobRetrying means the last attempt failed transiently and another is scheduled.
	JobRetrying JobState = "retrying"

	// JobSucceeded is terminal.
	JobSucceeded JobState = "succeeded"

	// JobFailed is terminal. LastError holds the reason.
	JobFailed JobState = "failed"
)

// IsTerminal returns true for succeeded and failed.
func (s JobState) IsTerminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to JobState) bool {
	switch from {
	case JobQueued:
		return to == JobRunning
	case JobRunning:
		return to == JobSucceeded || to == JobFailed || to == JobRetrying || to == JobQueued
	case JobRetrying:
		return to == JobRunning || to == JobFailed || to == JobQueued
	default:
		return false
	}
}

// IngestionJob is one file picked up by the ingestion coordinator.
type IngestionJob struct {
	// ID is the unique identifier for the job.
	ID string

	// SourceID references the document in its file source (a path for directories).
	SourceID string

	// Filename is the display name of the document.
	Filename string

	// State is the current lifecycle state.
	State JobState

	// AttemptCount is the number of attempts started so far.
	AttemptCount int

	// LastError is the error message of the most recent failed attempt.
	LastError string

	// Status is the document outcome of the final attempt, if any.
	Status DocumentStatus

	// CreatedAt is when the job was enqueued.
	CreatedAt time.Time

	// UpdatedAt is when the job last changed state.
	UpdatedAt time.Time
}
