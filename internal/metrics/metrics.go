package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventLabel = "event"
	OpLabel    = "op"
)

// Recorder owns a private registry so the textfile it writes carries only
// tracker metrics.
type Recorder struct {
	registry       *prometheus.Registry
	SessionsOpened prometheus.Counter
	EventsRecorded *prometheus.CounterVec
	StoreErrors    *prometheus.CounterVec
	OpDuration     *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		SessionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "tracker_sessions_opened_total",
			Help: "Store sessions opened successfully",
		}),
		EventsRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_events_recorded_total",
			Help: "Occurrences committed, by event name",
		}, []string{EventLabel}),
		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_store_errors_total",
			Help: "Store operations that returned an error",
		}, []string{OpLabel}),
		OpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tracker_store_op_duration_seconds",
			Help:    "Latency of store operations",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{OpLabel}),
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile atomically writes the current values in the text exposition
// format, for node_exporter's textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
