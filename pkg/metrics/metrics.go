// Package metrics provides Prometheus metrics for the nettle pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal tracks pipeline runs by outcome
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nettle",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		},
		[]string{"status"},
	)

	// StageDuration tracks how long each matching stage takes
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nettle",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of matching stages in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"algorithm"},
	)

	// StageMerges tracks entities absorbed by each matching stage
	StageMerges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nettle",
			Subsystem: "pipeline",
			Name:      "stage_merges_total",
			Help:      "Total number of entities absorbed by matching stages",
		},
		[]string{"algorithm"},
	)

	// StageInterruptions tracks stages that merged partial worker results
	StageInterruptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nettle",
			Subsystem: "pipeline",
			Name:      "stage_interruptions_total",
			Help:      "Total number of matching stages whose workers were interrupted",
		},
		[]string{"algorithm"},
	)

	// PreReducerMerges tracks entities absorbed by exact name key matches
	PreReducerMerges = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nettle",
			Subsystem: "pipeline",
			Name:      "prereducer_merges_total",
			Help:      "Total number of entities absorbed by the exact key pre-reducer",
		},
	)

	// WorkingSetSize tracks the entity count after the latest stage
	WorkingSetSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nettle",
			Subsystem: "pipeline",
			Name:      "working_set_entities",
			Help:      "Number of entities in the working set after the latest stage",
		},
	)

	// CompanyResolutions tracks company reference outcomes by tier
	CompanyResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nettle",
			Subsystem: "companies",
			Name:      "resolutions_total",
			Help:      "Total number of company references by resolution tier",
		},
		[]string{"tier"},
	)

	// ExportErrors tracks failed sink exports
	ExportErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nettle",
			Subsystem: "export",
			Name:      "errors_total",
			Help:      "Total number of failed exports by sink",
		},
		[]string{"sink"},
	)
)
