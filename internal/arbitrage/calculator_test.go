package arbitrage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// S2: maker-side arbitrage exists (bid+ask sums comfortably under 1).
func TestEvaluateBuy_MakerArb(t *testing.T) {
	costs := EvaluateBuy(BuyLegInputs{
		VenueAYesBid:      0.45,
		VenueAYesBidDepth: 50,
		VenueAYesAsk:      0.47,
		VenueAYesAskDepth: 50,
		VenueBNoAsk:       0.50,
		VenueBNoAskDepth:  30,
		FeeRateBps:        200,
		MaxPosition:       1000,
	})

	require.True(t, costs.MakerHasArb)
	require.InDelta(t, 0.95, costs.MakerCost, 1e-9)
	require.InDelta(t, 0.05, costs.MakerProfit, 1e-9)
	require.Equal(t, 30.0, costs.MakerMaxQty)
}

// S3: taker-side cost exceeds 1 after fees -- not profitable.
func TestEvaluateBuy_TakerUnprofitable(t *testing.T) {
	costs := EvaluateBuy(BuyLegInputs{
		VenueAYesAsk:      0.55,
		VenueAYesAskDepth: 50,
		VenueBNoAsk:       0.50,
		VenueBNoAskDepth:  50,
		FeeRateBps:        200,
	})

	require.False(t, costs.TakerHasArb)
}

func TestEvaluateBuy_TakerArbWithFee(t *testing.T) {
	costs := EvaluateBuy(BuyLegInputs{
		VenueAYesAsk:      0.40,
		VenueAYesAskDepth: 20,
		VenueBNoAsk:       0.50,
		VenueBNoAskDepth:  40,
		FeeRateBps:        200,
		MaxPosition:       0,
	})

	require.True(t, costs.TakerHasArb)
	require.Equal(t, 20.0, costs.TakerMaxQty)
	require.Greater(t, costs.TakerProfit, 0.0)
}

func TestEvaluateBuy_MaxPositionClamps(t *testing.T) {
	costs := EvaluateBuy(BuyLegInputs{
		VenueAYesBid:      0.45,
		VenueAYesBidDepth: 100,
		VenueBNoAsk:       0.50,
		VenueBNoAskDepth:  100,
		FeeRateBps:        200,
		MaxPosition:       10,
	})

	require.True(t, costs.MakerHasArb)
	require.Equal(t, 10.0, costs.MakerMaxQty)
}

// S5: close-opportunity taker-taker unwind.
func TestEvaluateCloseTakerTaker(t *testing.T) {
	result := EvaluateCloseTakerTaker(0.55, 200, 0.48, 100, 0.90, 10)

	require.Equal(t, "T-T", result.Strategy)
	require.True(t, result.Valid)
	require.Greater(t, result.EstProfitPerShare, 0.0)
}

func TestEvaluateCloseTakerTaker_InsufficientDepth(t *testing.T) {
	result := EvaluateCloseTakerTaker(0.55, 200, 0.48, 2, 0.90, 10)
	require.False(t, result.Valid)
}

func TestEvaluateCloseMakerTaker(t *testing.T) {
	result := EvaluateCloseMakerTaker(0.52, 0.49, 100, 0.90, 10)

	require.Equal(t, "M-T", result.Strategy)
	require.True(t, result.Valid)
}
