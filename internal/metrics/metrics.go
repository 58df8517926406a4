// Package metrics holds the Prometheus collectors of the navigation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PlansTotal counts route plans by outcome: found, unreachable, truncated.
	PlansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roadnav_plans_total",
		Help: "Total route plans by outcome",
	}, []string{"outcome"})

	// PlanDuration tracks planner latency.
	PlanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "roadnav_plan_duration_seconds",
		Help:    "Route planning duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
	})

	// SearchExpansions tracks the number of states expanded per search.
	SearchExpansions = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "roadnav_search_expansions",
		Help:    "States expanded per route search",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})

	// StaleEntries counts outdated queue entries skipped by the planner.
	StaleEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roadnav_search_stale_entries_total",
		Help: "Outdated priority queue entries skipped",
	})

	// TrafficMutations counts traffic changes by kind: jam, block, open, reset.
	TrafficMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roadnav_traffic_mutations_total",
		Help: "Total traffic changes by kind",
	}, []string{"kind"})

	// Disruptions is the number of roads currently jammed or blocked.
	Disruptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roadnav_disrupted_roads",
		Help: "Roads currently deviating from their base weight",
	})

	// ReroutesTotal counts reroutes by outcome: spliced, no_passage, invalid.
	ReroutesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roadnav_reroutes_total",
		Help: "Total reroutes by outcome",
	}, []string{"outcome"})

	// ActiveRoutes is the number of stored route sessions.
	ActiveRoutes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roadnav_active_routes",
		Help: "Route sessions held for rerouting",
	})

	// RecorderErrors counts failures mirroring traffic changes to the store.
	RecorderErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roadnav_status_recorder_errors_total",
		Help: "Failed attempts to persist road status",
	})
)
