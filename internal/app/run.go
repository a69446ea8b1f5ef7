package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("mode", a.cfg.ExecutionMode),
		zap.String("log-level", a.cfg.LogLevel))

	if err := a.startComponents(); err != nil {
		return err
	}

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("venue-a-ws-url", a.cfg.VenueAWSURL),
		zap.String("venue-b-ws-url", a.cfg.PolymarketWSURL))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give the HTTP listener a moment to bind before marking ready.
	time.Sleep(100 * time.Millisecond)

	if err := a.mappingRegistry.Run(a.ctx); err != nil {
		return fmt.Errorf("start mapping registry: %w", err)
	}

	if err := a.obManager.Start(a.ctx); err != nil {
		return fmt.Errorf("start orderbook manager: %w", err)
	}

	if err := a.startVenueAFeed(); err != nil {
		return fmt.Errorf("start venue-a feed: %w", err)
	}

	if err := a.startVenueBFeed(); err != nil {
		return fmt.Errorf("start venue-b feed: %w", err)
	}

	if a.venueAOnchain != nil {
		a.wg.Add(1)
		go a.runVenueAOnchainWatcher()
	}

	if a.venueBUserChannel != nil {
		if err := a.venueBUserChannel.Start(); err != nil {
			a.logger.Warn("venue-b-user-channel-start-failed", zap.Error(err))
		}
	}

	if err := a.arbDetector.Start(a.ctx); err != nil {
		return fmt.Errorf("start arbitrage detector: %w", err)
	}

	a.scheduler.Start(a.ctx)

	a.wg.Add(1)
	go a.runReconciler()

	a.wg.Add(1)
	go a.consumeOpportunities()

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

// startVenueAFeed connects the Venue-A market-data socket and subscribes to
// every Venue-A market id the mapping registry currently knows about.
func (a *App) startVenueAFeed() error {
	if err := a.venueAMarketClient.Start(); err != nil {
		return err
	}

	marketIDs := make([]string, 0)
	for _, m := range a.mappingRegistry.ListMappings() {
		if a.opts.SingleMarket != "" && m.MarketIDA != a.opts.SingleMarket {
			continue
		}
		marketIDs = append(marketIDs, m.MarketIDA)
	}
	if len(marketIDs) == 0 {
		a.logger.Warn("venue-a-no-mappings-to-subscribe")
		return nil
	}
	return a.venueAMarketClient.Subscribe(marketIDs)
}

// startVenueBFeed connects the Venue-B market-data socket and subscribes to
// every mapped Venue-B token (both outcomes of every mapping).
func (a *App) startVenueBFeed() error {
	if err := a.venueBManager.Start(); err != nil {
		return err
	}

	tokenIDs := make([]string, 0)
	for _, m := range a.mappingRegistry.ListMappings() {
		if a.opts.SingleMarket != "" && m.MarketIDA != a.opts.SingleMarket {
			continue
		}
		if m.YesTokenB != "" {
			tokenIDs = append(tokenIDs, m.YesTokenB)
		}
		if m.NoTokenB != "" {
			tokenIDs = append(tokenIDs, m.NoTokenB)
		}
	}
	if len(tokenIDs) == 0 {
		a.logger.Warn("venue-b-no-mappings-to-subscribe")
		return nil
	}
	return a.venueBManager.Subscribe(a.ctx, tokenIDs)
}

func (a *App) runVenueAOnchainWatcher() {
	defer a.wg.Done()
	if err := a.venueAOnchain.Start(a.ctx); err != nil {
		a.logger.Error("venue-a-onchain-watcher-error", zap.Error(err))
	}
}

func (a *App) runReconciler() {
	defer a.wg.Done()
	if err := a.reconciler.Run(a.ctx); err != nil && a.ctx.Err() == nil {
		a.logger.Error("reconciler-error", zap.Error(err))
	}
}

// consumeOpportunities turns detected arbitrage opportunities into scheduled
// tasks, skipping any that show no arb on either leg or have zero quantity.
func (a *App) consumeOpportunities() {
	defer a.wg.Done()
	for {
		select {
		case <-a.ctx.Done():
			return
		case opp, ok := <-a.arbDetector.OpportunityChan():
			if !ok {
				return
			}
			task, ok := taskFromOpportunity(opp)
			if !ok {
				continue
			}
			if _, err := a.scheduler.Create(task); err != nil {
				a.logger.Warn("opportunity-task-create-failed",
					zap.String("opportunity_id", opp.ID),
					zap.Error(err))
			}
		}
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
