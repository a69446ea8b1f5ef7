package arbitrage

import "github.com/mselser95/polymarket-arb/pkg/types"

// CreateTestMapping builds a MarketMapping fixture for tests.
func CreateTestMapping(marketID, eventTitle string) *types.MarketMapping {
	return &types.MarketMapping{
		MarketIDA:    marketID,
		ConditionIDB: "cond-" + marketID,
		YesTokenA:    "yes-a-" + marketID,
		NoTokenA:     "no-a-" + marketID,
		YesTokenB:    "yes-b-" + marketID,
		NoTokenB:     "no-b-" + marketID,
		IsInverted:   false,
		TickSize:     0.01,
		FeeRateBps:   200,
		EventTitle:   eventTitle,
	}
}

// CreateTestOpportunity creates a test arbitrage opportunity (YES side,
// profitable on both legs) for use across package tests.
func CreateTestOpportunity(marketID, eventTitle string) *Opportunity {
	mapping := CreateTestMapping(marketID, eventTitle)
	inputs := BuyLegInputs{
		VenueAYesBid:      0.45,
		VenueAYesBidDepth: 100,
		VenueAYesAsk:      0.46,
		VenueAYesAskDepth: 100,
		VenueBNoAsk:       0.52,
		VenueBNoAskDepth:  80,
		FeeRateBps:        200,
	}
	costs := EvaluateBuy(inputs)
	return NewOpportunity(mapping, types.OutcomeYes, costs, inputs)
}
