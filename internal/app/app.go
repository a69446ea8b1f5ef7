package app

import (
	"context"
	"sync"

	"github.com/mselser95/polymarket-arb/internal/arbitrage"
	"github.com/mselser95/polymarket-arb/internal/circuitbreaker"
	"github.com/mselser95/polymarket-arb/internal/execution"
	"github.com/mselser95/polymarket-arb/internal/markets"
	"github.com/mselser95/polymarket-arb/internal/orderbook"
	"github.com/mselser95/polymarket-arb/internal/reconciliation"
	"github.com/mselser95/polymarket-arb/internal/scheduler"
	"github.com/mselser95/polymarket-arb/internal/venueA"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/healthprobe"
	"github.com/mselser95/polymarket-arb/pkg/httpserver"
	"github.com/mselser95/polymarket-arb/pkg/websocket"
	"go.uber.org/zap"
)

// App wires and runs the full cross-venue pipeline: C1 market-data fabric
// for both venues, the C2 order-book cache and arbitrage scanner, the C3
// two-leg execution engine, C4 position reconciliation, and the C5
// scheduler/durable log that sequences tasks between them.
type App struct {
	cfg           *config.Config
	opts          *Options
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server

	mappingRegistry *markets.MappingRegistry

	venueAMarketClient *venueA.MarketClient
	venueAOnchain      *venueA.OnChainWatcher
	venueBManager      *websocket.Manager
	venueBUserChannel  *websocket.UserChannelManager

	obManager   *orderbook.Manager
	arbDetector *arbitrage.Detector

	taskExecutor *execution.TaskExecutor
	scheduler    *scheduler.Scheduler
	taskLog      *scheduler.TaskLog
	taskIndex    *scheduler.PostgresIndex

	reconciler *reconciliation.Reconciler

	circuitBreaker *circuitbreaker.BalanceCircuitBreaker

	venueAUpdates chan orderbook.RawUpdate

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options holds application options.
type Options struct {
	SingleMarket string // Venue-A market id to track, for debugging.
}
