package markets

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MetadataFetchDuration tracks metadata API fetch latency.
	MetadataFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbbot_markets_metadata_fetch_duration_seconds",
		Help:    "Duration of metadata fetch from CLOB API",
		Buckets: prometheus.DefBuckets,
	})

	// MetadataFetchErrors tracks metadata fetch failures.
	MetadataFetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbbot_markets_metadata_fetch_errors_total",
		Help: "Total number of metadata fetch errors",
	})

	// MetadataCacheHits tracks cache hits for metadata.
	MetadataCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbbot_markets_metadata_cache_hits_total",
		Help: "Total number of metadata cache hits",
	})

	// MetadataCacheMisses tracks cache misses for metadata.
	MetadataCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbbot_markets_metadata_cache_misses_total",
		Help: "Total number of metadata cache misses",
	})

	// MappingCount reports the number of cross-venue mappings currently held.
	MappingCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbbot_markets_mapping_count",
		Help: "Number of MarketMapping entries currently held by the registry",
	})

	// MappingRefreshErrorsTotal counts failed mapping-source refreshes.
	MappingRefreshErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbbot_markets_mapping_refresh_errors_total",
		Help: "Total number of failed MarketMapping refreshes from the mapping source",
	})

	// MappingRefreshDuration tracks mapping-source refresh latency.
	MappingRefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbbot_markets_mapping_refresh_duration_seconds",
		Help:    "Duration of a MarketMapping refresh from the mapping source",
		Buckets: prometheus.DefBuckets,
	})
)
