package arbitrage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// Opportunity is a detected cross-venue two-leg arbitrage: a priced leg on
// one venue and a marketable hedge on the other, on the ArbSide outcome.
type Opportunity struct {
	ID         string
	Mapping    *types.MarketMapping
	ArbSide    types.Outcome
	DetectedAt time.Time
	Costs      BuyCosts
	Inputs     BuyLegInputs // the quotes Costs was evaluated from, kept for task construction.
}

// NewOpportunity builds an Opportunity from an already-evaluated BuyCosts.
func NewOpportunity(mapping *types.MarketMapping, arbSide types.Outcome, costs BuyCosts, inputs BuyLegInputs) *Opportunity {
	return &Opportunity{
		ID:         uuid.New().String(),
		Mapping:    mapping,
		ArbSide:    arbSide,
		DetectedAt: time.Now(),
		Costs:      costs,
		Inputs:     inputs,
	}
}

// HasArb reports whether either leg (maker or taker) is profitable.
func (o *Opportunity) HasArb() bool {
	return o.Costs.MakerHasArb || o.Costs.TakerHasArb
}

// String returns a human-readable representation of the opportunity.
func (o *Opportunity) String() string {
	return fmt.Sprintf(
		"Opportunity[%s] event=%s side=%s makerCost=%.4f takerCost=%.4f makerQty=%.2f takerQty=%.2f",
		o.ID[:8], o.Mapping.EventTitle, o.ArbSide, o.Costs.MakerCost, o.Costs.TakerCost,
		o.Costs.MakerMaxQty, o.Costs.TakerMaxQty,
	)
}
