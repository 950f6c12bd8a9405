// Package metrics records Prometheus metrics for completion calls and
// knowledge-document writes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Write operation labels.
const (
	OpBuild    = "build"
	OpConfirm  = "confirm"
	OpEvolve   = "evolve"
	OpComplete = "complete"
	OpReplace  = "replace"
)

// Write status labels.
const (
	WriteOK       = "ok"
	WriteConflict = "conflict"
	WriteError    = "error"
)

// Recorder holds the engine's collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	llmRequests       *prometheus.CounterVec
	llmDuration       *prometheus.HistogramVec
	writes            *prometheus.CounterVec
	evolutionFallback prometheus.Counter
	synthesisDegraded prometheus.Counter
}

// NewRecorder registers the collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		llmRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prdkb_llm_requests_total",
				Help: "Completion calls by provider, operation and outcome",
			},
			[]string{"provider", "operation", "status"},
		),
		llmDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prdkb_llm_request_duration_seconds",
				Help:    "Duration of completion calls in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
			},
			[]string{"provider", "operation"},
		),
		writes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prdkb_knowledge_writes_total",
				Help: "Knowledge document writes by operation and outcome",
			},
			[]string{"operation", "status"},
		),
		evolutionFallback: f.NewCounter(prometheus.CounterOpts{
			Name: "prdkb_evolution_fallbacks_total",
			Help: "Requirements assigned to the fallback module after a failed classification",
		}),
		synthesisDegraded: f.NewCounter(prometheus.CounterOpts{
			Name: "prdkb_synthesis_degraded_total",
			Help: "Builds that produced a degraded document from unparsable output",
		}),
	}
}

// ObserveLLMCall records one completion call.
func (r *Recorder) ObserveLLMCall(provider, operation, status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.llmRequests.WithLabelValues(provider, operation, status).Inc()
	r.llmDuration.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
}

// ObserveWrite records one document write attempt.
func (r *Recorder) ObserveWrite(operation, status string) {
	if r == nil {
		return
	}
	r.writes.WithLabelValues(operation, status).Inc()
}

// IncEvolutionFallback counts one fallback classification.
func (r *Recorder) IncEvolutionFallback() {
	if r == nil {
		return
	}
	r.evolutionFallback.Inc()
}

// IncSynthesisDegraded counts one degraded build.
func (r *Recorder) IncSynthesisDegraded() {
	if r == nil {
		return
	}
	r.synthesisDegraded.Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
