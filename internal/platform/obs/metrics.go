package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RouteCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trajectory_route_cache_hits_total",
		Help: "Route lookups served from cache, by tier",
	}, []string{"tier"})
	RouteCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trajectory_route_cache_misses_total",
		Help: "Route lookups that required the routing provider",
	})
	RouteCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trajectory_route_cache_evictions_total",
		Help: "Entries evicted from the in-memory route cache",
	})
	ProviderAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trajectory_route_provider_attempts_total",
		Help: "Routing provider calls, by outcome",
	}, []string{"outcome"})
	RouteFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trajectory_route_fallbacks_total",
		Help: "Segments degraded to a straight line after exhausting retries",
	})
	ReportsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trajectory_reports_dropped_total",
		Help: "Reports rejected or skipped during reconciliation, by reason",
	}, []string{"reason"})
	EpisodeResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trajectory_episode_resets_total",
		Help: "New delivery episodes detected",
	})
	LegsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trajectory_legs_completed_total",
		Help: "Legs animated to completion",
	})
	LegsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trajectory_legs_cancelled_total",
		Help: "Legs abandoned by an episode reset or teardown",
	})
	LegDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trajectory_leg_duration_seconds",
		Help:    "Wall time spent animating a single leg",
		Buckets: []float64{0.25, 0.5, 1, 2, 3, 5, 10},
	})
	ActiveSubjects = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trajectory_active_subjects",
		Help: "Subjects with live animation state",
	})
)

func ObserveLegDuration(start time.Time) {
	LegDuration.Observe(time.Since(start).Seconds())
}
