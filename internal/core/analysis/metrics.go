package analysis

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "insightwatt",
		Subsystem: "analysis",
		Name:      "stage_duration_seconds",
		Help:      "Duration of each analysis pipeline stage",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
	}, []string{"stage"})

	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "insightwatt",
		Subsystem: "analysis",
		Name:      "runs_total",
		Help:      "Completed analysis runs by terminal state",
	}, []string{"state"})

	degradedSections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "insightwatt",
		Subsystem: "analysis",
		Name:      "degraded_sections_total",
		Help:      "Result sections produced by a fallback path",
	}, []string{"section"})
)

func observeStage(stage string, start time.Time) {
	stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
