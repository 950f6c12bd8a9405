package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.ObserveLLMCall("gemini", "synthesis", "ok", 2*time.Second)
	r.ObserveLLMCall("gemini", "synthesis", "ok", time.Second)
	r.ObserveLLMCall("gemini", "classification", "unavailable", time.Second)
	r.ObserveWrite(OpBuild, WriteOK)
	r.ObserveWrite(OpComplete, WriteConflict)
	r.IncEvolutionFallback()
	r.IncSynthesisDegraded()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.llmRequests.WithLabelValues("gemini", "synthesis", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.llmRequests.WithLabelValues("gemini", "classification", "unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.writes.WithLabelValues(OpComplete, WriteConflict)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.evolutionFallback))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.synthesisDegraded))
	assert.Equal(t, 2, testutil.CollectAndCount(r.llmDuration))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	r.ObserveLLMCall("p", "o", "s", time.Second)
	r.ObserveWrite(OpBuild, WriteOK)
	r.IncEvolutionFallback()
	r.IncSynthesisDegraded()
}

func TestHandler_ServesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRecorder(reg).IncSynthesisDegraded()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "prdkb_synthesis_degraded_total 1")
}
