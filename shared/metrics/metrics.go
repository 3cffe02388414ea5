package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsforge_requests_total",
			Help: "Code requests handled, by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)
	ModelLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jsforge_model_latency_seconds",
			Help:    "Latency of generation calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
	ModelErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsforge_model_errors_total",
			Help: "Failed generation calls",
		},
		[]string{"provider"},
	)
	FilesSavedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jsforge_files_saved_total",
			Help: "Files written to the workspace",
		},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
