package extractor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts extraction runs.
	// Labels: method (rule_based, rule_based_with_llm, llm_few_shot)
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "actionitems",
			Subsystem: "extractor",
			Name:      "runs_total",
			Help:      "Total number of extraction runs by method",
		},
		[]string{"method"},
	)

	// RunDuration tracks end-to-end extraction latency.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "actionitems",
			Subsystem: "extractor",
			Name:      "run_duration_seconds",
			Help:      "Duration of extraction runs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// SegmentsSkipped counts segments rejected before pattern matching.
	// Labels: reason (missing_field, too_short, fragment, or an exclusion rule id)
	SegmentsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "actionitems",
			Subsystem: "extractor",
			Name:      "segments_skipped_total",
			Help:      "Total number of transcript segments skipped",
		},
		[]string{"reason"},
	)

	// Candidates counts candidates by what happened to them.
	// Labels: outcome (collected, short_description, duplicate, removed, emitted)
	Candidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "actionitems",
			Subsystem: "extractor",
			Name:      "candidates_total",
			Help:      "Total number of candidate tasks by outcome",
		},
		[]string{"outcome"},
	)

	// FallbacksTotal counts degradations to a simpler strategy.
	// Labels: from (llm_few_shot)
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "actionitems",
			Subsystem: "extractor",
			Name:      "fallbacks_total",
			Help:      "Total number of strategy fallbacks",
		},
		[]string{"from"},
	)
)
