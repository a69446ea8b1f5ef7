package app

import (
	"testing"

	"github.com/mselser95/polymarket-arb/internal/arbitrage"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

func TestTaskFromOpportunity_PrefersTaker(t *testing.T) {
	opp := arbitrage.CreateTestOpportunity("market-1", "Will X happen?")

	task, ok := taskFromOpportunity(opp)
	if !ok {
		t.Fatal("expected a task to be produced")
	}

	if task.Kind != types.TaskBuy {
		t.Errorf("expected BUY task, got %s", task.Kind)
	}
	if task.Strategy != types.StrategyTaker {
		t.Errorf("expected TAKER strategy when taker arb exists, got %s", task.Strategy)
	}
	if task.MarketIDA != opp.Mapping.MarketIDA {
		t.Errorf("market id mismatch: got %s want %s", task.MarketIDA, opp.Mapping.MarketIDA)
	}
	if task.ConditionIDB != opp.Mapping.ConditionIDB {
		t.Errorf("condition id mismatch: got %s want %s", task.ConditionIDB, opp.Mapping.ConditionIDB)
	}
	if task.Quantity <= 0 {
		t.Errorf("expected positive quantity, got %f", task.Quantity)
	}
	if err := task.Params.Validate(task.Kind, task.Strategy); err != nil {
		t.Errorf("task params failed validation: %v", err)
	}
}

func TestTaskFromOpportunity_MakerOnly(t *testing.T) {
	mapping := arbitrage.CreateTestMapping("market-2", "Will Y happen?")
	inputs := arbitrage.BuyLegInputs{
		VenueAYesBid:      0.40,
		VenueAYesBidDepth: 50,
		VenueAYesAsk:      0.55, // wide spread kills the taker leg.
		VenueAYesAskDepth: 50,
		VenueBNoAsk:       0.58,
		VenueBNoAskDepth:  50,
		FeeRateBps:        200,
	}
	costs := arbitrage.EvaluateBuy(inputs)
	opp := arbitrage.NewOpportunity(mapping, types.OutcomeYes, costs, inputs)

	task, ok := taskFromOpportunity(opp)
	if !costs.MakerHasArb {
		if ok {
			t.Fatal("expected no task when neither leg has arb")
		}
		return
	}
	if !ok {
		t.Fatal("expected a maker task to be produced")
	}
	if task.Strategy != types.StrategyMaker {
		t.Errorf("expected MAKER strategy, got %s", task.Strategy)
	}
	if err := task.Params.Validate(task.Kind, task.Strategy); err != nil {
		t.Errorf("task params failed validation: %v", err)
	}
}

func TestTaskFromOpportunity_NoArbReturnsFalse(t *testing.T) {
	mapping := arbitrage.CreateTestMapping("market-3", "Will Z happen?")
	inputs := arbitrage.BuyLegInputs{
		VenueAYesBid:      0.45,
		VenueAYesBidDepth: 50,
		VenueAYesAsk:      0.60,
		VenueAYesAskDepth: 50,
		VenueBNoAsk:       0.60,
		VenueBNoAskDepth:  50,
		FeeRateBps:        200,
	}
	costs := arbitrage.EvaluateBuy(inputs)
	opp := arbitrage.NewOpportunity(mapping, types.OutcomeYes, costs, inputs)

	if _, ok := taskFromOpportunity(opp); ok {
		t.Fatal("expected no task when total cost exceeds one")
	}
}
