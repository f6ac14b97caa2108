package driven

import "github.com/custodia-labs/tally/internal/core/domain"

// Metrics records pipeline counters. A nil Metrics is never passed to
// services; use NopMetrics instead.
type Metrics interface {
	// DocumentProcessed counts a finished document.
	DocumentProcessed(status domain.DocumentStatus)

	// OCRFallback counts a vision call that fell back to the local engine.
	OCRFallback()

	// ServiceCall counts an external call by service name and result class.
	ServiceCall(service, result string)

	// JobTransition counts a job entering a state.
	JobTransition(state domain.JobState)
}

// NopMetrics discards everything.
type NopMetrics struct{}

// Ensure NopMetrics implements the interface.
var _ Metrics = NopMetrics{}

func (NopMetrics) DocumentProcessed(domain.DocumentStatus) {}
func (NopMetrics) OCRFallback()                            {}
func (NopMetrics) ServiceCall(string, string)              {}
func (NopMetrics) JobTransition(domain.JobState)           {}
