package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tally/internal/core/domain"
)

func TestRecorder_Counts(t *testing.T) {
	r := New()

	r.DocumentProcessed(domain.StatusSucceeded)
	r.DocumentProcessed(domain.StatusSucceeded)
	r.DocumentProcessed(domain.StatusFailed)
	r.OCRFallback()
	r.ServiceCall("gemini", "ok")
	r.ServiceCall("gemini", "unavailable")
	r.JobTransition(domain.JobQueued)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.documents.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.documents.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ocrFallbacks))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.serviceCalls.WithLabelValues("gemini", "unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.jobs.WithLabelValues("queued")))
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.JobTransition(domain.JobSucceeded)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `tally_jobs_total{state="succeeded"} 1`)
	assert.Contains(t, string(body), "# HELP tally_ocr_fallbacks_total")
}

func TestRecorder_SeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.OCRFallback()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.ocrFallbacks))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ocrFallbacks))
	assert.NotSame(t, a.Registry(), b.Registry())
}
