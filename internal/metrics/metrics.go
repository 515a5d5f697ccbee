// Package metrics defines the Prometheus metrics recorded by the
// provider's predict/prefetch/preempt operations, grounded on the
// model-agent's metrics.go pattern of promauto-registered CounterVecs
// and HistogramVecs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every metric the provider emits.
type Metrics struct {
	predictTotal     *prometheus.CounterVec
	predictDuration  *prometheus.HistogramVec
	prefetchTotal    *prometheus.CounterVec
	prefetchDuration *prometheus.HistogramVec
	preemptTotal     *prometheus.CounterVec
	modelsLoaded     prometheus.Gauge
}

// New creates and registers every metric against registerer. A nil
// registerer falls back to prometheus.DefaultRegisterer.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		predictTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "inference_provider_predict_total",
				Help: "Total number of predict calls by model and result",
			},
			[]string{"model_id", "result"},
		),
		predictDuration: promauto.With(registerer).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inference_provider_predict_duration_seconds",
				Help:    "Duration of predict calls in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
			},
			[]string{"model_id"},
		),
		prefetchTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "inference_provider_prefetch_total",
				Help: "Total number of prefetch calls by model and result",
			},
			[]string{"model_id", "result"},
		),
		prefetchDuration: promauto.With(registerer).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inference_provider_prefetch_duration_seconds",
				Help:    "Duration of prefetch calls (registry fetch + engine init) in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
			[]string{"model_id"},
		),
		preemptTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "inference_provider_preempt_total",
				Help: "Total number of preempt calls by model and result",
			},
			[]string{"model_id", "result"},
		),
		modelsLoaded: promauto.With(registerer).NewGauge(prometheus.GaugeOpts{
			Name: "inference_provider_models_loaded",
			Help: "Current number of models registered in the model zoo",
		}),
	}
}

// ObservePredict records the outcome and latency of a predict call.
func (m *Metrics) ObservePredict(modelID string, err error, duration time.Duration) {
	m.predictTotal.WithLabelValues(modelID, resultLabel(err)).Inc()
	m.predictDuration.WithLabelValues(modelID).Observe(duration.Seconds())
}

// ObservePrefetch records the outcome and latency of a prefetch call.
func (m *Metrics) ObservePrefetch(modelID string, err error, duration time.Duration) {
	m.prefetchTotal.WithLabelValues(modelID, resultLabel(err)).Inc()
	m.prefetchDuration.WithLabelValues(modelID).Observe(duration.Seconds())
}

// ObservePreempt records the outcome of a preempt call.
func (m *Metrics) ObservePreempt(modelID string, err error) {
	m.preemptTotal.WithLabelValues(modelID, resultLabel(err)).Inc()
}

// SetModelsLoaded reports the current size of the model zoo.
func (m *Metrics) SetModelsLoaded(n int) {
	m.modelsLoaded.Set(float64(n))
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
