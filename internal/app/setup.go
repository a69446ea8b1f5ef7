package app

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/arbitrage"
	"github.com/mselser95/polymarket-arb/internal/circuitbreaker"
	"github.com/mselser95/polymarket-arb/internal/discovery"
	"github.com/mselser95/polymarket-arb/internal/execution"
	"github.com/mselser95/polymarket-arb/internal/markets"
	"github.com/mselser95/polymarket-arb/internal/orderbook"
	"github.com/mselser95/polymarket-arb/internal/reconciliation"
	"github.com/mselser95/polymarket-arb/internal/scheduler"
	"github.com/mselser95/polymarket-arb/internal/storage"
	"github.com/mselser95/polymarket-arb/internal/transport"
	"github.com/mselser95/polymarket-arb/internal/venueA"
	"github.com/mselser95/polymarket-arb/pkg/cache"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/healthprobe"
	"github.com/mselser95/polymarket-arb/pkg/httpserver"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/mselser95/polymarket-arb/pkg/wallet"
	"github.com/mselser95/polymarket-arb/pkg/websocket"
)

// New creates a new application instance, wiring C1 through C5 but not
// starting any of their goroutines; Run does that.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	restBreakers := setupBreakerRegistry(logger)

	mappingRegistry := setupMappingRegistry(cfg, logger, restBreakers)

	venueAUpdates := make(chan orderbook.RawUpdate, 10000)
	obRaw := make(chan *orderbook.RawUpdate, 10000)
	go forwardRawUpdates(ctx, venueAUpdates, obRaw)

	obManager := orderbook.New(&orderbook.Config{Logger: logger, MessageChannel: obRaw})

	venueAClient, err := execution.NewVenueAClient(&execution.VenueAClientConfig{
		BaseURL:       cfg.VenueARESTURL,
		PrivateKeyHex: cfg.VenueAPrivateKey,
		Address:       cfg.VenueAAddress,
		Logger:        logger,
		Breakers:      restBreakers,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup venue-a client: %w", err)
	}

	venueAMarketClient := venueA.NewMarketClient(venueA.MarketClientConfig{
		URL:                   cfg.VenueAWSURL,
		JWT:                   func() (string, error) { return venueAClient.AuthToken(context.Background()) },
		DialTimeout:           cfg.WSDialTimeout,
		ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
		ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
		ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
		Logger:                logger,
	}, venueAUpdates)

	var venueAOnchain *venueA.OnChainWatcher
	if len(cfg.VenueAOnchainRPCURLs) > 0 {
		venueAOnchain = venueA.New(venueA.Config{
			RPCURLs:           cfg.VenueAOnchainRPCURLs,
			ExchangeContracts: cfg.VenueAExchangeContracts,
			SelfAddress:       cfg.VenueAAddress,
			Logger:            logger,
		})
	} else {
		logger.Info("venue-a-onchain-watcher-disabled", zap.String("note", "BSC_WSS_URLS not set"))
	}

	venueBManager := websocket.New(websocket.Config{
		URL:                   cfg.PolymarketWSURL,
		DialTimeout:           cfg.WSDialTimeout,
		PongTimeout:           cfg.WSPongTimeout,
		PingInterval:          cfg.WSPingInterval,
		ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
		ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
		ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
		MessageBufferSize:     cfg.WSMessageBufferSize,
		Logger:                logger,
	})
	go adaptVenueBBooks(ctx, mappingRegistry, venueBManager.MessageChan(), obRaw)

	var venueBUserChannel *websocket.UserChannelManager
	if cfg.VenueBAPIKey != "" && cfg.VenueBAPISecret != "" {
		venueBUserChannel = websocket.NewUserChannelManager(websocket.UserChannelConfig{
			URL:                   wsURLForUserChannel(cfg.PolymarketWSURL),
			APIKey:                cfg.VenueBAPIKey,
			Secret:                cfg.VenueBAPISecret,
			Passphrase:            cfg.VenueBAPIPassphrase,
			DialTimeout:           cfg.WSDialTimeout,
			PingInterval:          cfg.WSPingInterval,
			ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
			ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
			ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
			Logger:                logger,
		})
	} else {
		logger.Info("venue-b-user-channel-disabled", zap.String("note", "VENUE_B API credentials not set"))
	}

	arbStorage, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	arbDetector := arbitrage.New(
		arbitrage.Config{
			MinTradeSize: cfg.ArbMinTradeSize,
			MaxTradeSize: cfg.ArbMaxTradeSize,
			Logger:       logger,
		},
		obManager,
		mappingRegistry,
		arbStorage,
	)

	signerA, err := execution.NewSigner(&execution.SignerConfig{
		Venue:         types.VenueA,
		ChainID:       cfg.VenueAChainID,
		PrivateKeyHex: cfg.VenueAPrivateKey,
		Address:       cfg.VenueAAddress,
		ProxyAddress:  cfg.VenueAProxyAddress,
		SignatureType: cfg.VenueASignatureType,
		Logger:        logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup venue-a signer: %w", err)
	}

	signerB, err := execution.NewSigner(&execution.SignerConfig{
		Venue:         types.VenueB,
		ChainID:       cfg.VenueBChainID,
		PrivateKeyHex: cfg.VenueBPrivateKey,
		Address:       cfg.VenueBAddress,
		ProxyAddress:  cfg.VenueBProxyAddress,
		SignatureType: cfg.VenueBSignatureType,
		Logger:        logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup venue-b signer: %w", err)
	}

	venueBClient := execution.NewVenueBClient(&execution.VenueBClientConfig{
		BaseURL:    cfg.VenueBRESTURL,
		APIKey:     cfg.VenueBAPIKey,
		Secret:     cfg.VenueBAPISecret,
		Passphrase: cfg.VenueBAPIPassphrase,
		Address:    cfg.VenueBAddress,
		Logger:     logger,
		Breakers:   restBreakers,
	})

	breaker, err := setupCircuitBreaker(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup circuit breaker: %w", err)
	}

	var venueAWatcher execution.OrderEventWatcher
	if venueAOnchain != nil {
		venueAWatcher = venueAOnchain
	}
	var venueBWatcher execution.OrderEventWatcher
	if venueBUserChannel != nil {
		venueBWatcher = venueBUserChannel
	}

	taskExecutor := execution.New(&execution.Config{
		VenueAClient:   venueAClient,
		VenueBClient:   venueBClient,
		SignerA:        signerA,
		SignerB:        signerB,
		Books:          obManager,
		Mappings:       mappingRegistry,
		CircuitBreaker: breaker,
		Logger:         logger,
		VenueAWatcher:  venueAWatcher,
		VenueBWatcher:  venueBWatcher,
	})

	taskLog := scheduler.NewTaskLog(cfg.TaskLogDir, logger)

	var taskIndex *scheduler.PostgresIndex
	if cfg.TaskIndexEnabled {
		taskIndex, err = scheduler.NewPostgresIndex(&scheduler.PostgresIndexConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("setup task index: %w", err)
		}
	}

	taskScheduler := scheduler.New(scheduler.Config{
		Executor: taskExecutor,
		Log:      taskLog,
		Index:    taskIndex,
		Logger:   logger,
	})

	reconciler := reconciliation.New(reconciliation.Config{
		VenueA: reconciliation.NewVenueAPositionSource(reconciliation.VenueAPositionSourceConfig{
			GraphQLURL: cfg.VenueAGraphQLURL,
			RESTURL:    cfg.VenueARESTURL,
			Address:    cfg.VenueAAddress,
			Logger:     logger,
		}),
		VenueB: reconciliation.NewVenueBPositionSource(reconciliation.VenueBPositionSourceConfig{
			DataAPIURL: cfg.VenueBDataAPIURL,
			CLOBURL:    cfg.VenueBRESTURL,
			Address:    cfg.VenueBAddress,
			Logger:     logger,
		}),
		Mappings:     mappingRegistry,
		Books:        obManager,
		Logger:       logger,
		PollInterval: cfg.ReconcilePollInterval,
		CacheTTL:     cfg.ReconcileCacheTTL,
	})

	httpServer := httpserver.New(&httpserver.Config{
		Port:             cfg.HTTPPort,
		Logger:           logger,
		HealthChecker:    healthChecker,
		OrderbookManager: obManager,
		Mappings:         mappingRegistry,
		Scheduler:        taskScheduler,
		Reconciler:       reconciler,
		AuthToken:        cfg.DashboardAuthToken,
	})

	return &App{
		cfg:                cfg,
		opts:               opts,
		logger:             logger,
		healthChecker:      healthChecker,
		httpServer:         httpServer,
		mappingRegistry:    mappingRegistry,
		venueAMarketClient: venueAMarketClient,
		venueAOnchain:      venueAOnchain,
		venueBManager:      venueBManager,
		venueBUserChannel:  venueBUserChannel,
		obManager:          obManager,
		arbDetector:        arbDetector,
		taskExecutor:       taskExecutor,
		scheduler:          taskScheduler,
		taskLog:            taskLog,
		taskIndex:          taskIndex,
		reconciler:         reconciler,
		circuitBreaker:     breaker,
		venueAUpdates:      venueAUpdates,
		ctx:                ctx,
		cancel:             cancel,
	}, nil
}

func setupMappingRegistry(cfg *config.Config, logger *zap.Logger, breakers *transport.BreakerRegistry) *markets.MappingRegistry {
	var source markets.MappingSource
	if cfg.MappingSourceType == "static" {
		source = markets.NewStaticMappingSource(nil)
	} else {
		source = markets.NewFileMappingSource(cfg.MappingFilePath)
	}

	if cfg.MappingEnrichEnabled {
		gammaClient := discovery.NewClient(cfg.PolymarketGammaURL, logger, breakers)
		source = discovery.NewEnrichingMappingSource(source, gammaClient, logger)
	}

	return markets.NewMappingRegistry(markets.MappingRegistryConfig{
		Source:       source,
		PollInterval: cfg.MappingPollInterval,
		Logger:       logger,
	})
}

// setupBreakerRegistry builds the shared per-(venue,endpoint) circuit
// breaker used by every REST client (Venue-A, Venue-B, and the Gamma
// discovery API), backed by a Ristretto cache for stale-on-open fallback.
// Falls back to an uncached registry if the cache fails to construct.
func setupBreakerRegistry(logger *zap.Logger) *transport.BreakerRegistry {
	c, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		logger.Warn("rest-breaker-cache-disabled", zap.Error(err))
		return transport.NewBreakerRegistry(transport.BreakerConfig{Logger: logger}, nil)
	}
	return transport.NewBreakerRegistry(transport.BreakerConfig{Logger: logger}, c)
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (arbitrage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

func setupCircuitBreaker(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*circuitbreaker.BalanceCircuitBreaker, error) {
	if !cfg.CircuitBreakerEnabled {
		return nil, nil
	}

	privateKeyHex := os.Getenv("POLYMARKET_PRIVATE_KEY")
	if privateKeyHex == "" {
		logger.Warn("circuit-breaker-disabled-no-private-key",
			zap.String("note", "POLYMARKET_PRIVATE_KEY not set, circuit breaker disabled"))
		return nil, nil
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		logger.Warn("circuit-breaker-disabled-invalid-key", zap.Error(err))
		return nil, nil
	}

	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		logger.Warn("circuit-breaker-disabled-key-cast-failed")
		return nil, nil
	}
	address := crypto.PubkeyToAddress(*publicKeyECDSA)

	rpcURL := os.Getenv("POLYGON_RPC_URL")
	if rpcURL == "" {
		rpcURL = "https://polygon-rpc.com"
	}

	walletClient, err := wallet.NewClient(rpcURL, logger)
	if err != nil {
		return nil, fmt.Errorf("create wallet client: %w", err)
	}

	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:   cfg.CircuitBreakerCheckInterval,
		TradeMultiplier: cfg.CircuitBreakerTradeMultiplier,
		MinAbsolute:     cfg.CircuitBreakerMinAbsolute,
		HysteresisRatio: cfg.CircuitBreakerHysteresisRatio,
		WalletClient:    walletClient,
		Address:         address,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create circuit breaker: %w", err)
	}

	breaker.Start(ctx)
	return breaker, nil
}

// wsURLForUserChannel derives Venue-B's authenticated user-channel URL from
// its public market-channel URL: same host, "/ws/user" instead of
// "/ws/market".
func wsURLForUserChannel(marketWSURL string) string {
	return strings.Replace(marketWSURL, "/ws/market", "/ws/user", 1)
}
