package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_turns_processed_total",
			Help: "Total number of conversation turns processed",
		},
		[]string{"category"},
	)

	TurnsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_turns_failed_total",
			Help: "Total number of turns that ended in a terminal error",
		},
		[]string{"error_code"},
	)

	DirectivesFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_directives_fired_total",
			Help: "Total number of control directives honored",
		},
		[]string{"directive"},
	)

	CompletionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_completion_failures_total",
			Help: "Total number of failed text completion calls",
		},
	)

	ExtractionFieldHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_extraction_field_hits_total",
			Help: "Total number of structured fields recovered by extraction",
		},
		[]string{"field"},
	)

	TurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "engine_turn_duration_seconds",
			Help: "Duration of turn processing in seconds",
		},
	)
)
