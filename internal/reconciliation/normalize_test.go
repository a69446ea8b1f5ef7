package reconciliation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

func testMapping(inverted bool) *types.MarketMapping {
	return &types.MarketMapping{
		MarketIDA:    "market-a-1",
		ConditionIDB: "condition-b-1",
		YesTokenA:    "yes-a",
		NoTokenA:     "no-a",
		YesTokenB:    "yes-b",
		NoTokenB:     "no-b",
		IsInverted:   inverted,
		FeeRateBps:   200,
		EventTitle:   "will-it-rain",
	}
}

type fakeMappingProvider struct {
	byAsset map[string]*types.MarketMapping
}

func (f *fakeMappingProvider) MappingForAsset(assetID string) (*types.MarketMapping, bool) {
	m, ok := f.byAsset[assetID]
	return m, ok
}

func (f *fakeMappingProvider) ListMappings() []*types.MarketMapping {
	seen := map[*types.MarketMapping]bool{}
	var out []*types.MarketMapping
	for _, m := range f.byAsset {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

func newFakeMappingProvider(mappings ...*types.MarketMapping) *fakeMappingProvider {
	byAsset := make(map[string]*types.MarketMapping)
	for _, m := range mappings {
		byAsset[m.YesTokenA] = m
		byAsset[m.NoTokenA] = m
		byAsset[m.YesTokenB] = m
		byAsset[m.NoTokenB] = m
	}
	return &fakeMappingProvider{byAsset: byAsset}
}

func TestNormalize_UnknownTokenIsNoMapping(t *testing.T) {
	provider := newFakeMappingProvider(testMapping(false))
	raw := []VenuePosition{{Venue: types.VenueA, MarketID: "market-a-1", TokenID: "unknown-token", Shares: 10}}

	normalized, unmatched := normalize(raw, provider)
	require.Empty(t, normalized)
	require.Len(t, unmatched, 1)
	require.Equal(t, types.ReasonNoMapping, unmatched[0].Reason)
	require.Equal(t, types.OutcomeUnknown, unmatched[0].Position.Outcome)
}

func TestNormalize_ResolvesOutcomeFromTokenID(t *testing.T) {
	mapping := testMapping(false)
	provider := newFakeMappingProvider(mapping)
	raw := []VenuePosition{
		{Venue: types.VenueA, MarketID: "market-a-1", TokenID: "yes-a", Shares: 10, AvgPrice: 0.4},
		{Venue: types.VenueB, MarketID: "condition-b-1", TokenID: "no-b", Shares: 8, AvgPrice: 0.55},
	}

	normalized, unmatched := normalize(raw, provider)
	require.Empty(t, unmatched)
	require.Len(t, normalized, 2)
	require.Equal(t, types.OutcomeYes, normalized[0].outcome)
	require.Equal(t, types.OutcomeNo, normalized[1].outcome)
}

func TestMatch_AlignedOppositesFormPair(t *testing.T) {
	mapping := testMapping(false) // not inverted: YES-A pairs with NO-B.
	positions := []normalizedPosition{
		{mapping: mapping, outcome: types.OutcomeYes, pos: &types.Position{Venue: types.VenueA, Shares: 10, AverageEntryPrice: 0.4}},
		{mapping: mapping, outcome: types.OutcomeNo, pos: &types.Position{Venue: types.VenueB, Shares: 6, AverageEntryPrice: 0.55}},
	}

	pairs, unmatched := match(positions)
	require.Empty(t, unmatched)
	require.Len(t, pairs, 1)
	require.Equal(t, 6.0, pairs[0].MatchedShares)
	require.InDelta(t, 0.95, pairs[0].EntryCostPerShare(), 1e-9)
}

func TestMatch_InvertedMappingPairsSameOutcome(t *testing.T) {
	mapping := testMapping(true) // inverted: YES-A pairs with YES-B.
	positions := []normalizedPosition{
		{mapping: mapping, outcome: types.OutcomeYes, pos: &types.Position{Venue: types.VenueA, Shares: 10}},
		{mapping: mapping, outcome: types.OutcomeYes, pos: &types.Position{Venue: types.VenueB, Shares: 10}},
	}

	pairs, unmatched := match(positions)
	require.Empty(t, unmatched)
	require.Len(t, pairs, 1)
}

func TestMatch_DirectionMismatchIsUnmatched(t *testing.T) {
	mapping := testMapping(false)
	positions := []normalizedPosition{
		{mapping: mapping, outcome: types.OutcomeYes, pos: &types.Position{Venue: types.VenueA, Shares: 10}},
		{mapping: mapping, outcome: types.OutcomeYes, pos: &types.Position{Venue: types.VenueB, Shares: 10}}, // should have been NO to pair.
	}

	pairs, unmatched := match(positions)
	require.Empty(t, pairs)
	require.Len(t, unmatched, 2)
	for _, u := range unmatched {
		require.Equal(t, types.ReasonDirectionMismatch, u.Reason)
	}
}

func TestMatch_SingleSidedIsNoCounterpart(t *testing.T) {
	mapping := testMapping(false)
	positions := []normalizedPosition{
		{mapping: mapping, outcome: types.OutcomeYes, pos: &types.Position{Venue: types.VenueA, Shares: 10}},
	}

	pairs, unmatched := match(positions)
	require.Empty(t, pairs)
	require.Len(t, unmatched, 1)
	require.Equal(t, types.ReasonNoCounterpart, unmatched[0].Reason)
}

func TestEventTitle_AppendsOutcomeName(t *testing.T) {
	mapping := testMapping(false)
	require.Equal(t, "will-it-rain - YES", eventTitle(mapping, types.OutcomeYes))
	require.Equal(t, "will-it-rain", eventTitle(mapping, types.OutcomeUnknown))
}
