package reconciliation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReconcileDuration tracks end-to-end reconciliation tick latency.
	ReconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbbot_reconciliation_tick_duration_seconds",
		Help:    "Duration of a full position reconciliation tick across both venues",
		Buckets: prometheus.DefBuckets,
	})

	// PositionFetchErrorsTotal counts failed position reads, by venue.
	PositionFetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbbot_reconciliation_position_fetch_errors_total",
			Help: "Total number of failed position fetches, served from cache instead",
		},
		[]string{"venue"},
	)

	// MatchedPairsGauge reports the current count of delta-neutral matched
	// pairs.
	MatchedPairsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbbot_reconciliation_matched_pairs",
		Help: "Number of delta-neutral matched position pairs as of the last tick",
	})

	// UnmatchedPositionsGauge reports the current count of unmatched
	// positions.
	UnmatchedPositionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbbot_reconciliation_unmatched_positions",
		Help: "Number of positions with no delta-neutral counterpart as of the last tick",
	})
)
