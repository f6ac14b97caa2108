// Package metrics exposes pipeline counters through Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// Ensure Recorder implements the interface.
var _ driven.Metrics = (*Recorder)(nil)

const namespace = "tally"

// Recorder counts pipeline events on its own registry.
type Recorder struct {
	registry     *prometheus.Registry
	documents    *prometheus.CounterVec
	ocrFallbacks prometheus.Counter
	serviceCalls *prometheus.CounterVec
	jobs         *prometheus.CounterVec
}

// New creates a Recorder with all counters registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents processed, by final status.",
		}, []string{"status"}),
		ocrFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ocr_fallbacks_total",
			Help:      "Vision recognition calls that fell back to local OCR.",
		}),
		serviceCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_calls_total",
			Help:      "External service calls, by service and result class.",
		}, []string{"service", "result"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Ingestion job state transitions, by entered state.",
		}, []string{"state"}),
	}
	r.registry.MustRegister(r.documents, r.ocrFallbacks, r.serviceCalls, r.jobs)
	return r
}

// DocumentProcessed counts a finished document.
func (r *Recorder) DocumentProcessed(status domain.DocumentStatus) {
	r.documents.WithLabelValues(string(status)).Inc()
}

// OCRFallback counts a vision fallback.
func (r *Recorder) OCRFallback() {
	r.ocrFallbacks.Inc()
}

// ServiceCall counts an external call.
func (r *Recorder) ServiceCall(service, result string) {
	r.serviceCalls.WithLabelValues(service, result).Inc()
}

// JobTransition counts a job entering state.
func (r *Recorder) JobTransition(state domain.JobState) {
	r.jobs.WithLabelValues(string(state)).Inc()
}

// Registry returns the registry the counters live on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
