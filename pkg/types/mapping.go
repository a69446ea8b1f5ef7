package types

// MarketMapping pairs a Venue-A marketId with a Venue-B conditionId for the
// same underlying binary event, carrying per-side token ids and the
// inversion flag needed to reconcile positions and route hedge legs.
//
// Exactly one of YesTokenA/YesTokenB is populated per outcome; the opposing
// outcome's token/price is always derivable via p_no = 1 - p_yes, never
// stored redundantly.
type MarketMapping struct {
	MarketIDA    string // Venue-A market identifier.
	ConditionIDB string // Venue-B condition identifier.

	YesTokenA string
	NoTokenA  string
	YesTokenB string
	NoTokenB  string

	// IsInverted is true when YES on Venue-A corresponds to NO on Venue-B
	// (i.e. the two venues label the same underlying side oppositely).
	IsInverted bool

	NegRisk    bool
	TickSize   float64
	FeeRateBps float64
	EventTitle string
}

// ResolveOutcomeB returns the Venue-B outcome that is delta-neutral against
// outcomeA on Venue-A, respecting IsInverted.
func (m *MarketMapping) ResolveOutcomeB(outcomeA Outcome) Outcome {
	if outcomeA == OutcomeUnknown {
		return OutcomeUnknown
	}
	if m.IsInverted {
		return outcomeA
	}
	return outcomeA.Invert()
}

// TokenForOutcome returns the token id for the given venue/outcome pair, or
// "" if outcome is unknown or unmapped.
func (m *MarketMapping) TokenForOutcome(venue Venue, outcome Outcome) string {
	switch {
	case venue == VenueA && outcome == OutcomeYes:
		return m.YesTokenA
	case venue == VenueA && outcome == OutcomeNo:
		return m.NoTokenA
	case venue == VenueB && outcome == OutcomeYes:
		return m.YesTokenB
	case venue == VenueB && outcome == OutcomeNo:
		return m.NoTokenB
	default:
		return ""
	}
}
