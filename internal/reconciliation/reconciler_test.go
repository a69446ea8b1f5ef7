package reconciliation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

type fakePositionSource struct {
	calls     atomic.Int32
	positions []VenuePosition
	err       error
}

func (f *fakePositionSource) FetchPositions(ctx context.Context) ([]VenuePosition, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.positions, nil
}

type fakeBookSource struct {
	books map[string]*types.NormalizedOrderBook
}

func (f *fakeBookSource) GetBook(venue types.Venue, assetID string) (*types.NormalizedOrderBook, bool, bool) {
	b, ok := f.books[string(venue)+":"+assetID]
	if !ok {
		return nil, false, false
	}
	return b, false, true
}

func testReconciler(t *testing.T, a, b PositionSource) (*Reconciler, *fakeMappingProvider) {
	t.Helper()
	mapping := testMapping(false)
	provider := newFakeMappingProvider(mapping)
	r := New(Config{
		VenueA:   a,
		VenueB:   b,
		Mappings: provider,
		Logger:   zap.NewNop(),
		CacheTTL: 50 * time.Millisecond,
	})
	return r, provider
}

func TestReconciler_MatchesPositionsAcrossVenues(t *testing.T) {
	a := &fakePositionSource{positions: []VenuePosition{
		{Venue: types.VenueA, MarketID: "market-a-1", TokenID: "yes-a", Shares: 10, AvgPrice: 0.4},
	}}
	b := &fakePositionSource{positions: []VenuePosition{
		{Venue: types.VenueB, MarketID: "condition-b-1", TokenID: "no-b", Shares: 6, AvgPrice: 0.55},
	}}
	r, _ := testReconciler(t, a, b)

	r.reconcile(context.Background())

	snap := r.Snapshot()
	require.Len(t, snap.Pairs, 1)
	require.Empty(t, snap.Unmatched)
	require.Equal(t, 6.0, snap.Pairs[0].MatchedShares)
}

func TestReconciler_CachesPositionsWithinTTL(t *testing.T) {
	a := &fakePositionSource{}
	b := &fakePositionSource{}
	r, _ := testReconciler(t, a, b)

	r.positionsA(context.Background())
	r.positionsA(context.Background())
	require.EqualValues(t, 1, a.calls.Load(), "second call within cacheTTL must be served from cache")

	time.Sleep(60 * time.Millisecond)
	r.positionsA(context.Background())
	require.EqualValues(t, 2, a.calls.Load(), "call after cacheTTL expiry must refetch")
}

func TestReconciler_ServesStaleCacheOnFetchFailure(t *testing.T) {
	a := &fakePositionSource{positions: []VenuePosition{
		{Venue: types.VenueA, MarketID: "market-a-1", TokenID: "yes-a", Shares: 5},
	}}
	b := &fakePositionSource{}
	r, _ := testReconciler(t, a, b)

	first := r.positionsA(context.Background())
	require.Len(t, first, 1)

	time.Sleep(60 * time.Millisecond)
	a.err = errors.New("venue unreachable")
	second := r.positionsA(context.Background())
	require.Equal(t, first, second, "a failed fetch must fall back to the last successful list")
}

func TestReconciler_CloseOpportunitiesUsesLiveBooks(t *testing.T) {
	a := &fakePositionSource{positions: []VenuePosition{
		{Venue: types.VenueA, MarketID: "market-a-1", TokenID: "yes-a", Shares: 10, AvgPrice: 0.4},
	}}
	b := &fakePositionSource{positions: []VenuePosition{
		{Venue: types.VenueB, MarketID: "condition-b-1", TokenID: "no-b", Shares: 10, AvgPrice: 0.5},
	}}
	r, _ := testReconciler(t, a, b)
	r.books = &fakeBookSource{books: map[string]*types.NormalizedOrderBook{
		"venue-a:yes-a": {Bids: []types.PriceSize{{Price: 0.55, Size: 20}}, Asks: []types.PriceSize{{Price: 0.6, Size: 20}}},
		"venue-b:no-b":  {Bids: []types.PriceSize{{Price: 0.5, Size: 20}}, Asks: []types.PriceSize{{Price: 0.52, Size: 20}}},
	}}

	r.reconcile(context.Background())
	opps := r.CloseOpportunities()
	require.Len(t, opps, 1)
	require.Equal(t, "T-T", opps[0].TT.Strategy)
	require.NotNil(t, opps[0].MT)
}
