// Package storage persists detected arbitrage opportunities outside the
// hot path, so a restart or a dashboard query doesn't depend on the
// detector's in-memory state.
package storage

import (
	"context"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/arbitrage"
)

// ConsoleStorage logs each opportunity at info level and keeps nothing.
// It is the default: it is used unless STORAGE_MODE is "postgres".
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage builds a ConsoleStorage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	return &ConsoleStorage{logger: logger}
}

// StoreOpportunity implements arbitrage.Storage.
func (c *ConsoleStorage) StoreOpportunity(_ context.Context, opp *arbitrage.Opportunity) error {
	c.logger.Info("opportunity-detected",
		zap.String("id", opp.ID),
		zap.String("event", opp.Mapping.EventTitle),
		zap.String("market_id_a", opp.Mapping.MarketIDA),
		zap.String("condition_id_b", opp.Mapping.ConditionIDB),
		zap.String("arb_side", string(opp.ArbSide)),
		zap.Bool("maker_has_arb", opp.Costs.MakerHasArb),
		zap.Float64("maker_cost", opp.Costs.MakerCost),
		zap.Float64("maker_profit", opp.Costs.MakerProfit),
		zap.Bool("taker_has_arb", opp.Costs.TakerHasArb),
		zap.Float64("taker_cost", opp.Costs.TakerCost),
		zap.Float64("taker_profit", opp.Costs.TakerProfit),
	)
	return nil
}

// Close implements arbitrage.Storage.
func (c *ConsoleStorage) Close() error {
	return nil
}
