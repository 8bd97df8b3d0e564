package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Current number of active HTTP requests",
		},
	)

	// Notes Metrics
	NotesOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notes_operations_total",
			Help: "Total number of notes document operations",
		},
		[]string{"operation", "result"}, // load/save, success/failure
	)

	NotesStoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notes_store_duration_seconds",
			Help:    "Duration of notes store reads and writes",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	NotesSections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notes_sections",
			Help: "Sections in the last saved notes document",
		},
	)
)

func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
