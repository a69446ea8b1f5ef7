// Package orderbook implements the normalized order-book cache (C2): a
// (venue, assetId)-keyed store of NormalizedOrderBook snapshots, fed by both
// venues' WS listeners and read by the arbitrage depth calculator.
package orderbook

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// RawUpdate is what a venue WS listener publishes into the cache: a single
// asset's book, already parsed into price/size floats but not yet sorted,
// deduped, or merged with cached metadata.
type RawUpdate struct {
	Venue             types.Venue
	MarketID          string
	AssetID           string
	Outcome           types.Outcome
	UpdateTimestampMs int64
	Asks              []types.PriceSize
	Bids              []types.PriceSize
	// Incremental is true for a price-change style delta: only the sides
	// present are replaced; the other side of the cached book is preserved.
	Incremental bool
}

// bookKey identifies a cached book by venue and asset.
type bookKey struct {
	venue types.Venue
	asset string
}

// Manager is the (venue, assetId)-keyed NormalizedOrderBook cache. Readers
// obtain a consistent snapshot by value; the cache itself is read-many,
// write-one per asset (spec §5 shared-resource policy).
type Manager struct {
	books      map[bookKey]*types.NormalizedOrderBook
	mu         sync.RWMutex
	logger     *zap.Logger
	msgChan    <-chan *RawUpdate
	updateChan chan *types.NormalizedOrderBook
	staleAfter time.Duration
	ctx        context.Context
	wg         sync.WaitGroup
}

// Config holds orderbook manager configuration.
type Config struct {
	Logger         *zap.Logger
	MessageChannel <-chan *RawUpdate
	// StaleAfter bounds how old a book may be before GetBook flags it stale.
	StaleAfter time.Duration
}

// New creates a new orderbook manager.
func New(cfg *Config) *Manager {
	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 10 * time.Second
	}
	return &Manager{
		books:      make(map[bookKey]*types.NormalizedOrderBook),
		logger:     cfg.Logger,
		msgChan:    cfg.MessageChannel,
		updateChan: make(chan *types.NormalizedOrderBook, 100000), // buffer for high update rate.
		staleAfter: staleAfter,
	}
}

// Start starts the orderbook manager's message-processing loop.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx = ctx
	m.logger.Info("orderbook-manager-starting")

	m.wg.Add(1)
	go m.processMessages()

	return nil
}

func (m *Manager) processMessages() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Info("orderbook-manager-stopping")
			return
		case upd, ok := <-m.msgChan:
			if !ok {
				m.logger.Info("message-channel-closed")
				return
			}
			m.handleUpdate(upd)
		}
	}
}

func (m *Manager) handleUpdate(upd *RawUpdate) {
	timer := prometheus.NewTimer(UpdateProcessingDuration)
	defer timer.ObserveDuration()

	eventType := "book"
	if upd.Incremental {
		eventType = "price_change"
	}
	UpdatesTotal.WithLabelValues(string(upd.Venue), eventType).Inc()

	key := bookKey{venue: upd.Venue, asset: upd.AssetID}

	lockStart := time.Now()
	m.mu.Lock()
	LockContentionDuration.Observe(time.Since(lockStart).Seconds())

	existing, has := m.books[key]

	// Monotonic timestamp invariant (spec §3): never move a book backwards
	// in time; drop the stale-arrival update.
	if has && upd.UpdateTimestampMs < existing.UpdateTimestampMs {
		m.mu.Unlock()
		m.logger.Debug("orderbook-update-out-of-order",
			zap.String("venue", string(upd.Venue)),
			zap.String("asset-id", upd.AssetID))
		return
	}

	book := &types.NormalizedOrderBook{
		Venue:             upd.Venue,
		MarketID:          upd.MarketID,
		AssetID:           upd.AssetID,
		Outcome:           upd.Outcome,
		UpdateTimestampMs: upd.UpdateTimestampMs,
	}

	if has {
		book.MinOrderSize = existing.MinOrderSize
		book.TickSize = existing.TickSize
		book.NegRisk = existing.NegRisk
	}

	if upd.Incremental && has {
		book.Asks = existing.Asks
		book.Bids = existing.Bids
		if upd.Asks != nil {
			book.Asks = normalizeSide(upd.Asks, true)
		}
		if upd.Bids != nil {
			book.Bids = normalizeSide(upd.Bids, false)
		}
	} else {
		book.Asks = normalizeSide(upd.Asks, true)
		book.Bids = normalizeSide(upd.Bids, false)
	}

	m.books[key] = book
	BooksTracked.WithLabelValues(string(upd.Venue)).Set(float64(len(m.books)))
	m.mu.Unlock()

	m.logger.Debug("orderbook-updated",
		zap.String("venue", string(upd.Venue)),
		zap.String("asset-id", upd.AssetID))

	select {
	case m.updateChan <- book:
	default:
		m.logger.Error("CRITICAL-orderbook-update-channel-full-DROPPING-DATA",
			zap.String("asset-id", upd.AssetID),
			zap.Int("buffer-size", cap(m.updateChan)))
		UpdatesDroppedTotal.WithLabelValues("channel_full").Inc()
	}
}

// normalizeSide sorts and dedups a side: asks ascending, bids descending,
// keeping the last-seen size for a repeated price.
func normalizeSide(levels []types.PriceSize, ascending bool) []types.PriceSize {
	byPrice := make(map[float64]float64, len(levels))
	order := make([]float64, 0, len(levels))
	for _, lvl := range levels {
		if _, seen := byPrice[lvl.Price]; !seen {
			order = append(order, lvl.Price)
		}
		byPrice[lvl.Price] = lvl.Size
	}

	sort.Slice(order, func(i, j int) bool {
		if ascending {
			return order[i] < order[j]
		}
		return order[i] > order[j]
	})

	out := make([]types.PriceSize, 0, len(order))
	for _, p := range order {
		size := byPrice[p]
		if size <= 0 {
			continue // zero-size levels are removals, not resting liquidity.
		}
		out = append(out, types.PriceSize{Price: p, Size: size})
	}
	return out
}

// SetAssetMetadata merges REST-sourced minOrderSize/tickSize into a cached
// book (WS payloads never carry these fields — spec §4.1).
func (m *Manager) SetAssetMetadata(venue types.Venue, assetID string, minOrderSize, tickSize float64) {
	key := bookKey{venue: venue, asset: assetID}

	m.mu.Lock()
	defer m.mu.Unlock()

	book, has := m.books[key]
	if !has {
		book = &types.NormalizedOrderBook{Venue: venue, AssetID: assetID}
		m.books[key] = book
	}
	book.MinOrderSize = minOrderSize
	book.TickSize = tickSize
}

// GetBook returns a copy of the cached book for (venue, assetID), and
// whether it exceeded the staleness bound.
func (m *Manager) GetBook(venue types.Venue, assetID string) (book *types.NormalizedOrderBook, stale bool, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, has := m.books[bookKey{venue: venue, asset: assetID}]
	if !has {
		return nil, false, false
	}

	cp := *b
	cp.Asks = append([]types.PriceSize(nil), b.Asks...)
	cp.Bids = append([]types.PriceSize(nil), b.Bids...)

	age := time.Since(time.UnixMilli(cp.UpdateTimestampMs))
	isStale := age > m.staleAfter
	if isStale {
		StaleBooksTotal.WithLabelValues(string(venue)).Inc()
	}

	return &cp, isStale, true
}

// AllBooks returns a copy of every cached book for a venue.
func (m *Manager) AllBooks(venue types.Venue) []*types.NormalizedOrderBook {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.NormalizedOrderBook, 0, len(m.books))
	for key, b := range m.books {
		if key.venue != venue {
			continue
		}
		cp := *b
		cp.Asks = append([]types.PriceSize(nil), b.Asks...)
		cp.Bids = append([]types.PriceSize(nil), b.Bids...)
		out = append(out, &cp)
	}
	return out
}

// UpdateChan returns the channel for receiving normalized book updates.
func (m *Manager) UpdateChan() <-chan *types.NormalizedOrderBook {
	return m.updateChan
}

// Close gracefully shuts down the orderbook manager.
func (m *Manager) Close() error {
	m.logger.Info("closing-orderbook-manager")
	m.wg.Wait()
	close(m.updateChan)
	m.logger.Info("orderbook-manager-closed")
	return nil
}
