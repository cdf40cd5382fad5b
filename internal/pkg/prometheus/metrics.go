package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "crawlwatch"

var (
	TriggerFires = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "fires_total",
		Help:      "Scheduled jobs that became due, by frequency.",
	}, []string{"frequency"})

	LiveTriggers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "live_triggers",
		Help:      "Jobs currently holding a live trigger.",
	})

	StoreWriteErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "store_write_errors_total",
		Help:      "Failed writes of the job store file.",
	})

	Runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Finished pipeline runs, by trigger source and result.",
	}, []string{"source", "result"})

	RunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Wall time of pipeline runs.",
		Buckets:   []float64{30, 60, 300, 900, 1800, 3600, 7200, 14400},
	}, []string{"result"})

	RunsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "runs_in_flight",
		Help:      "Pipeline runs currently executing.",
	})

	NotifyErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notify",
		Name:      "errors_total",
		Help:      "Notifier delivery failures, by notifier type.",
	}, []string{"type"})
)

func init() {
	registry.MustRegister(
		TriggerFires,
		LiveTriggers,
		StoreWriteErrors,
		Runs,
		RunDuration,
		RunsInFlight,
		NotifyErrors,
	)
}
