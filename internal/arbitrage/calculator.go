package arbitrage

import "github.com/mselser95/polymarket-arb/pkg/types"

// BuyLegInputs are the quoted prices/depths for one side of a two-leg BUY
// arbitrage: buy YES on Venue-A, buy NO on Venue-B (or the symmetric NO-side
// view, per spec §4.2).
type BuyLegInputs struct {
	VenueAYesBid      float64
	VenueAYesBidDepth float64
	VenueAYesAsk      float64
	VenueAYesAskDepth float64
	VenueBNoAsk       float64
	VenueBNoAskDepth  float64
	FeeRateBps        float64
	MaxPosition       float64 // 0 means unbounded.
}

// BuyCosts is the result of evaluating both the maker and taker legs of a
// BUY-side arbitrage.
type BuyCosts struct {
	MakerCost    float64
	MakerHasArb  bool
	MakerMaxQty  float64
	MakerProfit  float64
	TakerCost    float64
	TakerFeePaid float64
	TakerHasArb  bool
	TakerMaxQty  float64
	TakerProfit  float64
}

// EvaluateBuy computes the maker and taker cost/feasibility/depth for a
// BUY-side two-leg arbitrage per spec §4.2 and §8 scenarios S2/S3.
//
//   makerCost   = predict_yes_bid + poly_no_ask
//   takerCost   = predict_yes_ask + poly_no_ask + predict_fee(ask)
//   makerMaxQty = min(poly_no_ask_depth, maxPosition) when makerCost <= 1+eps
//   takerMaxQty = min(predict_yes_ask_depth, poly_no_ask_depth, maxPosition) when takerCost < 1-eps
func EvaluateBuy(in BuyLegInputs) BuyCosts {
	var out BuyCosts

	out.MakerCost = types.Round4(in.VenueAYesBid + in.VenueBNoAsk)
	out.MakerHasArb = out.MakerCost <= 1+types.Epsilon
	if out.MakerHasArb {
		out.MakerMaxQty = clampMax(in.VenueBNoAskDepth, in.MaxPosition)
		out.MakerProfit = types.Round4(1 - out.MakerCost)
	}

	out.TakerFeePaid = TakerFee(in.VenueAYesAsk, in.FeeRateBps)
	out.TakerCost = types.Round4(in.VenueAYesAsk + in.VenueBNoAsk + out.TakerFeePaid)
	out.TakerHasArb = out.TakerCost < 1-types.Epsilon
	if out.TakerHasArb {
		out.TakerMaxQty = clampMax(minOf(in.VenueAYesAskDepth, in.VenueBNoAskDepth), in.MaxPosition)
		out.TakerProfit = types.Round4(1 - out.TakerCost)
	}

	return out
}

func clampMax(depth, maxPosition float64) float64 {
	if maxPosition > 0 && maxPosition < depth {
		return maxPosition
	}
	return depth
}

func minOf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// CloseOpportunity is the result of evaluating a matched-pair unwind via
// either the T-T or M-T calculator (spec §4.2, used by C4).
type CloseOpportunity struct {
	Strategy          string // "T-T" or "M-T"
	EstProfitPerShare float64
	MinPolyBid        float64
	Valid             bool
}

// EvaluateCloseTakerTaker computes the Taker-Taker close-opportunity metric:
// sell at Venue-A's bid (net of its taker fee) and Venue-B's bid.
func EvaluateCloseTakerTaker(predictBid, predictFeeRateBps, polyBid, polyBidDepth, entryCostPerShare, qty float64) CloseOpportunity {
	predictFee := TakerFee(predictBid, predictFeeRateBps)
	estProfit := types.Round4((predictBid - predictFee) + polyBid - entryCostPerShare)
	minPolyBid := types.Round4(entryCostPerShare - (predictBid - predictFee))
	return CloseOpportunity{
		Strategy:          "T-T",
		EstProfitPerShare: estProfit,
		MinPolyBid:        minPolyBid,
		Valid:             estProfit > 0 && polyBidDepth >= qty,
	}
}

// EvaluateCloseMakerTaker computes the Maker-Taker close-opportunity metric:
// a user-supplied Venue-A ask (resting limit sell) paired with Venue-B's bid.
func EvaluateCloseMakerTaker(predictAsk, polyBid, polyBidDepth, entryCostPerShare, qty float64) CloseOpportunity {
	estProfit := types.Round4(predictAsk + polyBid - entryCostPerShare)
	minPolyBid := types.Round4(entryCostPerShare - predictAsk)
	return CloseOpportunity{
		Strategy:          "M-T",
		EstProfitPerShare: estProfit,
		MinPolyBid:        minPolyBid,
		Valid:             estProfit > 0 && polyBidDepth >= qty,
	}
}
