package venueA

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OnChainFillsObservedTotal counts OrderFilled logs matching our address.
	OnChainFillsObservedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbbot_venuea_onchain_fills_observed_total",
		Help: "Total number of on-chain OrderFilled events observed for our own address",
	})

	// OnChainFillsDroppedTotal counts fills with no registered waiter.
	OnChainFillsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbbot_venuea_onchain_fills_dropped_total",
		Help: "Total number of on-chain fills dropped due to a full or missing waiter channel",
	})

	// OnChainSubscriptionErrorsTotal counts log-subscription errors.
	OnChainSubscriptionErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbbot_venuea_onchain_subscription_errors_total",
		Help: "Total number of on-chain log subscription errors",
	})

	// MarketClientConnected reports whether the Venue-A market WS is up.
	MarketClientConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbbot_venuea_market_ws_connected",
		Help: "Whether the Venue-A market-data WebSocket connection is up",
	})

	// MarketMessagesReceivedTotal counts parsed order-book update frames.
	MarketMessagesReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbbot_venuea_market_messages_received_total",
		Help: "Total number of Venue-A order-book update frames received",
	})

	// MarketMessagesDroppedTotal counts updates dropped due to a full cache channel.
	MarketMessagesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbbot_venuea_market_messages_dropped_total",
		Help: "Total number of Venue-A order-book updates dropped due to a full channel",
	})
)
