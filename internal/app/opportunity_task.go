package app

import (
	"time"

	"github.com/mselser95/polymarket-arb/internal/arbitrage"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// taskFromOpportunity converts a detected Opportunity into a schedulable
// Task, preferring the taker leg when both strategies show an arb since it
// crosses immediately instead of waiting on a resting order.
func taskFromOpportunity(opp *arbitrage.Opportunity) (types.Task, bool) {
	in := opp.Inputs
	costs := opp.Costs

	var task types.Task
	switch {
	case costs.TakerHasArb:
		task = types.Task{
			Kind:     types.TaskBuy,
			Strategy: types.StrategyTaker,
			Quantity: costs.TakerMaxQty,
			Params: types.TaskParams{
				PredictAskPrice:  in.VenueAYesAsk,
				PolymarketMaxAsk: in.VenueBNoAsk,
				MaxTotalCost:     costs.TakerCost,
			},
		}
	case costs.MakerHasArb:
		task = types.Task{
			Kind:     types.TaskBuy,
			Strategy: types.StrategyMaker,
			Quantity: costs.MakerMaxQty,
			Params: types.TaskParams{
				PredictPrice:     in.VenueAYesBid,
				PolymarketMaxAsk: in.VenueBNoAsk,
				MinProfitBuffer:  costs.MakerProfit,
			},
		}
	default:
		return types.Task{}, false
	}

	if task.Quantity <= 0 {
		return types.Task{}, false
	}

	task.MarketIDA = opp.Mapping.MarketIDA
	task.ConditionIDB = opp.Mapping.ConditionIDB
	task.ArbSide = opp.ArbSide
	task.FeeRateBps = in.FeeRateBps
	task.OrderTimeout = 30 * time.Second
	task.MaxHedgeRetries = 3

	return task, true
}
