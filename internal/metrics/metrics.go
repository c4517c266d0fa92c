package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "omniflow_events_enqueued_total",
		Help: "Total number of events placed on the processing queue.",
	})

	EventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "omniflow_events_processed_total",
		Help: "Total number of events fully processed by the dispatcher.",
	})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "omniflow_events_dropped_total",
		Help: "Total number of events rejected due to a full queue.",
	})

	RulesMatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omniflow_rules_matched_total",
		Help: "Total number of rule matches, labelled by rule name.",
	}, []string{"rule"})

	ActionsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omniflow_actions_resolved_total",
		Help: "Total number of action invocations resolved, labelled by action and status.",
	}, []string{"action", "status"})

	ParametersDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omniflow_parameters_dropped_total",
		Help: "Total number of rule action parameters dropped during resolution, labelled by reason.",
	}, []string{"reason"})

	ResolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "omniflow_resolution_duration_ms",
		Help:    "Rule resolution latency in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250},
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "omniflow_queue_utilization_ratio",
		Help: "Current event queue utilization (0–1).",
	})
)
