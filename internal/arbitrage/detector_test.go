package arbitrage

import (
	"context"
	"testing"
	"time"

	"github.com/mselser95/polymarket-arb/internal/orderbook"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMappingProvider struct {
	byAsset map[string]*types.MarketMapping
	all     []*types.MarketMapping
}

func newFakeMappingProvider(mapping *types.MarketMapping) *fakeMappingProvider {
	p := &fakeMappingProvider{byAsset: make(map[string]*types.MarketMapping)}
	p.byAsset[mapping.YesTokenA] = mapping
	p.byAsset[mapping.NoTokenB] = mapping
	p.all = []*types.MarketMapping{mapping}
	return p
}

func (p *fakeMappingProvider) MappingForAsset(assetID string) (*types.MarketMapping, bool) {
	m, ok := p.byAsset[assetID]
	return m, ok
}

func (p *fakeMappingProvider) ListMappings() []*types.MarketMapping {
	return p.all
}

func TestDetector_EmitsOpportunityWhenProfitable(t *testing.T) {
	msgChan := make(chan *orderbook.RawUpdate, 16)
	obManager := orderbook.New(&orderbook.Config{Logger: zap.NewNop(), MessageChannel: msgChan, StaleAfter: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, obManager.Start(ctx))

	mapping := CreateTestMapping("m1", "Test Event")
	provider := newFakeMappingProvider(mapping)
	storage := NewMockStorage()

	det := New(Config{MinTradeSize: 1, MaxTradeSize: 1000, Logger: zap.NewNop()}, obManager, provider, storage)
	require.NoError(t, det.Start(ctx))

	now := time.Now().UnixMilli()
	msgChan <- &orderbook.RawUpdate{
		Venue: types.VenueA, AssetID: mapping.YesTokenA, UpdateTimestampMs: now,
		Bids: []types.PriceSize{{Price: 0.45, Size: 50}},
		Asks: []types.PriceSize{{Price: 0.47, Size: 50}},
	}
	msgChan <- &orderbook.RawUpdate{
		Venue: types.VenueB, AssetID: mapping.NoTokenB, UpdateTimestampMs: now,
		Asks: []types.PriceSize{{Price: 0.50, Size: 30}},
	}

	select {
	case opp := <-det.OpportunityChan():
		require.True(t, opp.HasArb())
		require.Equal(t, types.OutcomeYes, opp.ArbSide)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for opportunity")
	}

	require.Len(t, storage.GetOpportunities(), 1)
}

func TestDetector_SkipsStaleBook(t *testing.T) {
	msgChan := make(chan *orderbook.RawUpdate, 16)
	obManager := orderbook.New(&orderbook.Config{Logger: zap.NewNop(), MessageChannel: msgChan, StaleAfter: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, obManager.Start(ctx))

	mapping := CreateTestMapping("m2", "Stale Event")
	provider := newFakeMappingProvider(mapping)
	storage := NewMockStorage()

	det := New(Config{MinTradeSize: 1, MaxTradeSize: 1000, Logger: zap.NewNop()}, obManager, provider, storage)
	require.NoError(t, det.Start(ctx))

	stale := time.Now().Add(-time.Hour).UnixMilli()
	msgChan <- &orderbook.RawUpdate{
		Venue: types.VenueA, AssetID: mapping.YesTokenA, UpdateTimestampMs: stale,
		Bids: []types.PriceSize{{Price: 0.45, Size: 50}},
	}
	msgChan <- &orderbook.RawUpdate{
		Venue: types.VenueB, AssetID: mapping.NoTokenB, UpdateTimestampMs: stale,
		Asks: []types.PriceSize{{Price: 0.50, Size: 30}},
	}

	select {
	case <-det.OpportunityChan():
		t.Fatal("expected no opportunity for stale books")
	case <-time.After(200 * time.Millisecond):
	}
}
