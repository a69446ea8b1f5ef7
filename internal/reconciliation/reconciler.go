package reconciliation

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/arbitrage"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// BookSource is the subset of the order-book cache the close-opportunity
// calculator reads current best bid/ask from.
type BookSource interface {
	GetBook(venue types.Venue, assetID string) (book *types.NormalizedOrderBook, stale bool, ok bool)
}

// Snapshot is a single reconciliation read: the matched pairs and unmatched
// positions as of the last successful (or cache-served) poll.
type Snapshot struct {
	Pairs     []*types.MatchedPair
	Unmatched []types.UnmatchedPosition
	AsOfA     time.Time
	AsOfB     time.Time
}

// CloseOpportunity pairs a MatchedPair with its T-T and M-T close metrics,
// exposed to the C5 scheduler endpoint (spec §4.4 "Close-opportunity
// emission").
type CloseOpportunity struct {
	Pair *types.MatchedPair
	TT   arbitrage.CloseOpportunity
	MT   *arbitrage.CloseOpportunity // nil when no Venue-A ask quote is available to price the maker leg.
}

// Reconciler periodically reads positions from both venues, normalizes and
// matches them into delta-neutral pairs, and derives close opportunities.
// Reads are cached for cacheTTL with single-flight dedup so concurrent
// callers (a task worker checking state mid-execution, the scheduler
// endpoint) never multiply venue REST load beyond the poll cadence (spec
// §4.4).
type Reconciler struct {
	venueA   PositionSource
	venueB   PositionSource
	mappings MappingProvider
	books    BookSource
	logger   *zap.Logger

	pollInterval time.Duration
	cacheTTL     time.Duration

	sfA singleflight.Group
	sfB singleflight.Group

	mu       sync.RWMutex
	rawA     []VenuePosition
	rawB     []VenuePosition
	asOfA    time.Time
	asOfB    time.Time
	lastErrA error
	lastErrB error

	snapMu sync.RWMutex
	snap   Snapshot
}

// Config configures a Reconciler.
type Config struct {
	VenueA       PositionSource
	VenueB       PositionSource
	Mappings     MappingProvider
	Books        BookSource
	Logger       *zap.Logger
	PollInterval time.Duration // default 30s.
	CacheTTL     time.Duration // default 5s.
}

// New constructs a Reconciler.
func New(cfg Config) *Reconciler {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		venueA:       cfg.VenueA,
		venueB:       cfg.VenueB,
		mappings:     cfg.Mappings,
		books:        cfg.Books,
		logger:       logger,
		pollInterval: pollInterval,
		cacheTTL:     cacheTTL,
	}
}

// Run polls both venues and recomputes matched pairs on pollInterval until
// ctx is cancelled. An initial reconcile happens synchronously.
func (r *Reconciler) Run(ctx context.Context) error {
	r.reconcile(ctx)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

func (r *Reconciler) reconcile(ctx context.Context) {
	start := time.Now()
	defer func() { ReconcileDuration.Observe(time.Since(start).Seconds()) }()

	rawA := r.positionsA(ctx)
	rawB := r.positionsB(ctx)

	normA, unmatchedA := normalize(rawA, r.mappings)
	normB, unmatchedB := normalize(rawB, r.mappings)

	pairs, unmatchedPaired := match(append(append([]normalizedPosition{}, normA...), normB...))

	unmatched := make([]types.UnmatchedPosition, 0, len(unmatchedA)+len(unmatchedB)+len(unmatchedPaired))
	unmatched = append(unmatched, unmatchedA...)
	unmatched = append(unmatched, unmatchedB...)
	unmatched = append(unmatched, unmatchedPaired...)

	r.mu.RLock()
	asOfA, asOfB := r.asOfA, r.asOfB
	r.mu.RUnlock()

	r.snapMu.Lock()
	r.snap = Snapshot{Pairs: pairs, Unmatched: unmatched, AsOfA: asOfA, AsOfB: asOfB}
	r.snapMu.Unlock()

	MatchedPairsGauge.Set(float64(len(pairs)))
	UnmatchedPositionsGauge.Set(float64(len(unmatched)))
	r.logger.Debug("reconciliation-tick",
		zap.Int("matched-pairs", len(pairs)),
		zap.Int("unmatched", len(unmatched)))
}

// positionsA returns the cached/fresh Venue-A position list. On fetch
// failure the last successful list is retained and returned (spec §4.4
// "Cache on failure") — the error is logged, never surfaced as fatal.
func (r *Reconciler) positionsA(ctx context.Context) []VenuePosition {
	return r.positionsFor(ctx, types.VenueA, r.venueA, &r.sfA)
}

func (r *Reconciler) positionsB(ctx context.Context) []VenuePosition {
	return r.positionsFor(ctx, types.VenueB, r.venueB, &r.sfB)
}

func (r *Reconciler) positionsFor(ctx context.Context, venue types.Venue, source PositionSource, sf *singleflight.Group) []VenuePosition {
	r.mu.RLock()
	var cached []VenuePosition
	var asOf time.Time
	if venue == types.VenueA {
		cached, asOf = r.rawA, r.asOfA
	} else {
		cached, asOf = r.rawB, r.asOfB
	}
	fresh := !asOf.IsZero() && time.Since(asOf) < r.cacheTTL
	r.mu.RUnlock()

	if fresh {
		return cached
	}

	v, err, _ := sf.Do(string(venue), func() (interface{}, error) {
		return source.FetchPositions(ctx)
	})

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		PositionFetchErrorsTotal.WithLabelValues(string(venue)).Inc()
		r.logger.Warn("positions-fetch-failed-using-cache",
			zap.String("venue", string(venue)), zap.Error(err))
		if venue == types.VenueA {
			r.lastErrA = err
		} else {
			r.lastErrB = err
		}
		if venue == types.VenueA {
			return r.rawA
		}
		return r.rawB
	}

	positions := v.([]VenuePosition)
	now := time.Now()
	if venue == types.VenueA {
		r.rawA, r.asOfA, r.lastErrA = positions, now, nil
	} else {
		r.rawB, r.asOfB, r.lastErrB = positions, now, nil
	}
	return positions
}

// Snapshot returns the most recently computed matched/unmatched view. Safe
// for concurrent use by multiple callers (scheduler endpoint, task
// workers).
func (r *Reconciler) Snapshot() Snapshot {
	r.snapMu.RLock()
	defer r.snapMu.RUnlock()
	return r.snap
}

// CloseOpportunities evaluates T-T and M-T close metrics for every currently
// matched pair, using each pair's live order books (spec §4.2/§4.4).
func (r *Reconciler) CloseOpportunities() []CloseOpportunity {
	snap := r.Snapshot()
	out := make([]CloseOpportunity, 0, len(snap.Pairs))

	for _, pair := range snap.Pairs {
		opp, ok := r.evaluatePair(pair)
		if ok {
			out = append(out, opp)
		}
	}
	return out
}

func (r *Reconciler) evaluatePair(pair *types.MatchedPair) (CloseOpportunity, bool) {
	if r.books == nil {
		return CloseOpportunity{}, false
	}

	aTokenID := pair.Mapping.TokenForOutcome(types.VenueA, pair.PositionA.Outcome)
	bTokenID := pair.Mapping.TokenForOutcome(types.VenueB, pair.PositionB.Outcome)

	aBook, aStale, aOK := r.books.GetBook(types.VenueA, aTokenID)
	bBook, bStale, bOK := r.books.GetBook(types.VenueB, bTokenID)
	if !aOK || !bOK || aStale || bStale {
		return CloseOpportunity{}, false
	}

	predictBid, _, hasBid := aBook.BestBid()
	polyBid, polyBidDepth, hasPolyBid := bBook.BestBid()
	if !hasBid || !hasPolyBid {
		return CloseOpportunity{}, false
	}

	entryCost := pair.EntryCostPerShare()
	qty := pair.MatchedShares

	tt := arbitrage.EvaluateCloseTakerTaker(predictBid, pair.Mapping.FeeRateBps, polyBid, polyBidDepth, entryCost, qty)

	var mt *arbitrage.CloseOpportunity
	if askPrice, _, hasAsk := aBook.BestAsk(); hasAsk {
		m := arbitrage.EvaluateCloseMakerTaker(askPrice, polyBid, polyBidDepth, entryCost, qty)
		mt = &m
	}

	return CloseOpportunity{Pair: pair, TT: tt, MT: mt}, true
}
