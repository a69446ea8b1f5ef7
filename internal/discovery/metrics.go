package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MappingsEnrichedTotal tracks mappings successfully matched against a
	// live Gamma market.
	MappingsEnrichedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbbot_discovery_mappings_enriched_total",
		Help: "Total number of curated mappings successfully enriched from the Gamma API",
	})

	// MappingEnrichErrorsTotal tracks mappings dropped because their
	// condition could not be resolved against the Gamma API.
	MappingEnrichErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbbot_discovery_mapping_enrich_errors_total",
		Help: "Total number of curated mappings dropped due to Gamma API lookup failures",
	})

	// PollDurationSeconds tracks Gamma API request latency.
	PollDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbbot_discovery_poll_duration_seconds",
		Help:    "Duration of Gamma API requests",
		Buckets: prometheus.DefBuckets,
	})
)
