package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application: stop accepting new work
// first (HTTP server, scheduler), then the detector and order-book cache,
// then the market-data feeds and the task index.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	a.scheduler.Wait()

	if err := a.arbDetector.Close(); err != nil {
		a.logger.Error("arbitrage-detector-close-error", zap.Error(err))
	}

	if err := a.obManager.Close(); err != nil {
		a.logger.Error("orderbook-manager-close-error", zap.Error(err))
	}

	if err := a.venueAMarketClient.Close(); err != nil {
		a.logger.Error("venue-a-market-client-close-error", zap.Error(err))
	}

	if a.venueAOnchain != nil {
		a.venueAOnchain.Close()
	}

	if err := a.venueBManager.Close(); err != nil {
		a.logger.Error("venue-b-manager-close-error", zap.Error(err))
	}

	if a.venueBUserChannel != nil {
		if err := a.venueBUserChannel.Close(); err != nil {
			a.logger.Error("venue-b-user-channel-close-error", zap.Error(err))
		}
	}

	if a.taskIndex != nil {
		if err := a.taskIndex.Close(); err != nil {
			a.logger.Error("task-index-close-error", zap.Error(err))
		}
	}

	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")
	return nil
}
