package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/SpideyPotter/InsightEye/internal/pipeline"
)

var (
	runsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "insighteye",
			Subsystem: "dispatch",
			Name:      "runs_started_total",
			Help:      "Pipeline runs started, by mode",
		},
		[]string{"mode"},
	)

	runsSuperseded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "insighteye",
			Subsystem: "dispatch",
			Name:      "runs_superseded_total",
			Help:      "Runs replaced by a newer request (joined or abandoned)",
		},
		[]string{"outcome"},
	)

	resultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "insighteye",
			Subsystem: "dispatch",
			Name:      "results_total",
			Help:      "Results delivered to the interface",
		},
		[]string{"mode", "outcome"},
	)

	resultsStale = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "insighteye",
			Subsystem: "dispatch",
			Name:      "results_stale_total",
			Help:      "Results dropped because their run was no longer current",
		},
	)

	busyGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "insighteye",
			Subsystem: "dispatch",
			Name:      "busy",
			Help:      "1 while a run is in flight",
		},
	)

	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "insighteye",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	stageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "insighteye",
			Subsystem: "pipeline",
			Name:      "failures_total",
			Help:      "Stage failures by kind",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(runsStarted, runsSuperseded, resultsTotal, resultsStale, busyGauge, stageDuration, stageFailures)
}

// StageMetrics records pipeline stage timings and failures. Pass it to
// pipeline.WithObserver.
type StageMetrics struct{}

func (StageMetrics) ObserveStage(stage pipeline.Stage, d time.Duration, err *pipeline.Error) {
	stageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
	if err != nil {
		stageFailures.WithLabelValues(string(err.Kind)).Inc()
	}
}
