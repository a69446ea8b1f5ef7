// Package arbitrage implements the order-book depth and arbitrage
// calculator (C2): fee models, maker/taker cost formulas, YES/NO inversion,
// and the continuous scanner that turns profitable books into Opportunities.
package arbitrage

import (
	"context"
	"sync"
	"time"

	"github.com/mselser95/polymarket-arb/internal/orderbook"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

// Storage is the interface for persisting detected opportunities.
type Storage interface {
	StoreOpportunity(ctx context.Context, opp *Opportunity) error
	Close() error
}

// MappingProvider resolves which MarketMapping an updated asset belongs to,
// and enumerates all known mappings for the full-scan path.
type MappingProvider interface {
	MappingForAsset(assetID string) (*types.MarketMapping, bool)
	ListMappings() []*types.MarketMapping
}

// Detector scans the order-book cache for both venues and emits arbitrage
// Opportunities whenever a mapped market crosses profitability thresholds.
type Detector struct {
	obManager       *orderbook.Manager
	mappings        MappingProvider
	config          Config
	logger          *zap.Logger
	storage         Storage
	opportunityChan chan *Opportunity
	obUpdateChan    <-chan *types.NormalizedOrderBook
	ctx             context.Context
	wg              sync.WaitGroup
}

// Config holds detector configuration.
type Config struct {
	MinTradeSize float64
	MaxTradeSize float64
	Logger       *zap.Logger
}

// New creates a new arbitrage detector.
func New(cfg Config, obManager *orderbook.Manager, mappings MappingProvider, storage Storage) *Detector {
	return &Detector{
		obManager:       obManager,
		mappings:        mappings,
		config:          cfg,
		logger:          cfg.Logger,
		storage:         storage,
		opportunityChan: make(chan *Opportunity, 10000),
		obUpdateChan:    obManager.UpdateChan(),
	}
}

// Start starts the arbitrage detector's scan loop.
func (d *Detector) Start(ctx context.Context) error {
	d.ctx = ctx
	d.logger.Info("arbitrage-detector-starting",
		zap.Float64("min-trade-size", d.config.MinTradeSize),
		zap.Float64("max-trade-size", d.config.MaxTradeSize))

	d.wg.Add(1)
	go d.detectionLoop()

	return nil
}

func (d *Detector) detectionLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			d.logger.Info("arbitrage-detector-stopping")
			close(d.opportunityChan)
			return
		case update, ok := <-d.obUpdateChan:
			if !ok {
				return
			}
			start := time.Now()
			d.checkArbitrageForAsset(update)
			DetectionDurationSeconds.Observe(time.Since(start).Seconds())
		}
	}
}

// checkArbitrageForAsset re-evaluates the full cross-venue mapping that an
// updated asset belongs to.
func (d *Detector) checkArbitrageForAsset(update *types.NormalizedOrderBook) {
	mapping, ok := d.mappings.MappingForAsset(update.AssetID)
	if !ok {
		return
	}

	d.evaluateMapping(mapping)
}

// evaluateMapping pulls the current best bid/ask/depth for both legs of a
// mapping and evaluates both arbitrage directions: buy YES on Venue-A
// hedged by NO on Venue-B, and the mirrored buy NO on Venue-A hedged by YES
// on Venue-B. The NO-side books are derived from the YES-side books via
// Invert() rather than tracked as separate subscriptions, since
// p_no = 1 - p_yes makes a second feed redundant.
func (d *Detector) evaluateMapping(mapping *types.MarketMapping) {
	aYes, aStale, aOK := d.obManager.GetBook(types.VenueA, mapping.YesTokenA)
	bNo, bStale, bOK := d.obManager.GetBook(types.VenueB, mapping.NoTokenB)
	if !aOK || !bOK {
		return
	}
	if aStale || bStale {
		d.logger.Debug("arb-scan-skipped-stale-book", zap.String("market", mapping.EventTitle))
		return
	}

	d.evaluateSide(mapping, types.OutcomeYes, aYes, bNo)

	aNo := aYes.Invert()
	bYes := bNo.Invert()
	d.evaluateSide(mapping, types.OutcomeNo, aNo, bYes)
}

// evaluateSide runs the buy-on-Venue-A/hedge-on-Venue-B cost model for a
// single arb direction, where aBook/bHedgeBook are already the outcome's
// own Venue-A book and Venue-B hedge-side book (YES/NO or NO/YES).
func (d *Detector) evaluateSide(mapping *types.MarketMapping, side types.Outcome, aBook, bHedgeBook *types.NormalizedOrderBook) {
	aBidPrice, aBidDepth, hasABid := aBook.BestBid()
	aAskPrice, aAskDepth, hasAAsk := aBook.BestAsk()
	bAskPrice, bAskDepth, hasBAsk := bHedgeBook.BestAsk()

	if !hasBAsk || (!hasABid && !hasAAsk) {
		return
	}

	in := BuyLegInputs{
		VenueAYesBid:      aBidPrice,
		VenueAYesBidDepth: aBidDepth,
		VenueAYesAsk:      aAskPrice,
		VenueAYesAskDepth: aAskDepth,
		VenueBNoAsk:       bAskPrice,
		VenueBNoAskDepth:  bAskDepth,
		FeeRateBps:        mapping.FeeRateBps,
		MaxPosition:       d.config.MaxTradeSize,
	}
	if !hasABid {
		in.VenueAYesBid = 0
	}
	if !hasAAsk {
		in.VenueAYesAsk = 1
	}

	costs := EvaluateBuy(in)
	if !costs.MakerHasArb && !costs.TakerHasArb {
		OpportunitiesRejectedTotal.WithLabelValues("unprofitable").Inc()
		return
	}

	opp := NewOpportunity(mapping, side, costs, in)
	d.emit(opp)
}

func (d *Detector) emit(opp *Opportunity) {
	OpportunitiesDetectedTotal.Inc()
	if opp.Costs.MakerHasArb {
		OpportunityProfitBPS.Observe(opp.Costs.MakerProfit * 10000)
	}
	if opp.Costs.TakerHasArb {
		NetProfitBPS.Observe(opp.Costs.TakerProfit * 10000)
	}

	if err := d.storage.StoreOpportunity(d.ctx, opp); err != nil {
		d.logger.Error("failed-to-store-opportunity", zap.String("opportunity-id", opp.ID), zap.Error(err))
	}

	select {
	case d.opportunityChan <- opp:
	default:
		d.logger.Warn("opportunity-channel-full-dropping", zap.String("opportunity-id", opp.ID))
		OpportunitiesRejectedTotal.WithLabelValues("channel_full").Inc()
	}
}

// OpportunityChan returns the channel of detected opportunities.
func (d *Detector) OpportunityChan() <-chan *Opportunity {
	return d.opportunityChan
}

// Close waits for the detection loop to stop.
func (d *Detector) Close() error {
	d.wg.Wait()
	return d.storage.Close()
}
