package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BreakerStateTransitionsTotal counts circuit-breaker state changes, by
	// (venue, endpoint, to-state).
	BreakerStateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbbot_transport_breaker_state_transitions_total",
			Help: "Total number of per-endpoint circuit breaker state transitions",
		},
		[]string{"venue", "endpoint", "state"},
	)

	// BreakerFallbacksTotal counts served-from-cache responses during an open breaker.
	BreakerFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbbot_transport_breaker_fallbacks_total",
			Help: "Total number of requests served from cache while the breaker was open",
		},
		[]string{"venue", "endpoint"},
	)

	// BreakerRejectionsTotal counts requests rejected with no cached fallback available.
	BreakerRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbbot_transport_breaker_rejections_total",
			Help: "Total number of requests rejected by an open breaker with no cached fallback",
		},
		[]string{"venue", "endpoint"},
	)

	// KeyPoolExhaustedTotal counts requests that found no available key.
	KeyPoolExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbbot_transport_keypool_exhausted_total",
			Help: "Total number of requests rejected because every API key was cooling down",
		},
		[]string{"venue"},
	)

	// KeyCooldownsTotal counts 429-triggered key cooldowns.
	KeyCooldownsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbbot_transport_key_cooldowns_total",
			Help: "Total number of API keys placed into cooldown after a 429",
		},
		[]string{"venue"},
	)
)
