package markets

import (
	"context"
	"testing"

	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testMapping() *types.MarketMapping {
	return &types.MarketMapping{
		MarketIDA:    "market-a-1",
		ConditionIDB: "condition-b-1",
		YesTokenA:    "yes-a",
		NoTokenA:     "no-a",
		YesTokenB:    "yes-b",
		NoTokenB:     "no-b",
		TickSize:     0.01,
		FeeRateBps:   200,
		EventTitle:   "will-it-rain",
	}
}

func TestMappingRegistry_LoadAndLookup(t *testing.T) {
	reg := NewMappingRegistry(MappingRegistryConfig{Logger: zap.NewNop()})
	m := testMapping()
	reg.Load([]*types.MarketMapping{m})

	byAsset, ok := reg.MappingForAsset("yes-a")
	require.True(t, ok)
	require.Equal(t, m, byAsset)

	byAsset, ok = reg.MappingForAsset("no-b")
	require.True(t, ok)
	require.Equal(t, m, byAsset)

	_, ok = reg.MappingForAsset("unknown-token")
	require.False(t, ok)

	byMarket, ok := reg.MappingForMarket("market-a-1")
	require.True(t, ok)
	require.Equal(t, m, byMarket)

	list := reg.ListMappings()
	require.Len(t, list, 1)
	require.Equal(t, m, list[0])
}

func TestMappingRegistry_LoadReplacesPreviousState(t *testing.T) {
	reg := NewMappingRegistry(MappingRegistryConfig{Logger: zap.NewNop()})
	reg.Load([]*types.MarketMapping{testMapping()})
	require.Len(t, reg.ListMappings(), 1)

	reg.Load(nil)
	require.Empty(t, reg.ListMappings())
	_, ok := reg.MappingForAsset("yes-a")
	require.False(t, ok)
}

func TestMappingRegistry_RunRefreshesFromSource(t *testing.T) {
	m := testMapping()
	source := NewStaticMappingSource([]*types.MarketMapping{m})
	reg := NewMappingRegistry(MappingRegistryConfig{
		Source: source,
		Logger: zap.NewNop(),
	})

	require.NoError(t, reg.refresh(context.Background()))

	got, ok := reg.MappingForMarket("market-a-1")
	require.True(t, ok)
	require.Equal(t, m, got)
}
