package reconciliation

import (
	"fmt"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// MappingProvider resolves the cross-venue MarketMapping set, satisfied by
// markets.MappingRegistry.
type MappingProvider interface {
	MappingForAsset(assetID string) (*types.MarketMapping, bool)
	ListMappings() []*types.MarketMapping
}

// normalizedPosition is a VenuePosition resolved to its MarketMapping and
// outcome, the common view both venues are projected into before matching
// (spec §4.4 "Normalization").
type normalizedPosition struct {
	mapping *types.MarketMapping
	outcome types.Outcome
	pos     *types.Position
}

// normalize resolves each raw VenuePosition to a (mapping, outcome) pair via
// the token id. Positions whose token id resolves to no mapping are
// returned separately as unmatched with ReasonNoMapping.
func normalize(raw []VenuePosition, mappings MappingProvider) ([]normalizedPosition, []types.UnmatchedPosition) {
	var normalized []normalizedPosition
	var unmatched []types.UnmatchedPosition

	for _, vp := range raw {
		mapping, ok := mappings.MappingForAsset(vp.TokenID)
		position := &types.Position{
			Venue:            vp.Venue,
			MarketID:         vp.MarketID,
			Shares:           vp.Shares,
			AverageEntryPrice: vp.AvgPrice,
			CurrentMarkValue: vp.MarkValue,
		}
		if !ok {
			position.Outcome = types.OutcomeUnknown
			unmatched = append(unmatched, types.UnmatchedPosition{Position: position, Reason: types.ReasonNoMapping})
			continue
		}

		outcome := outcomeForToken(mapping, vp.Venue, vp.TokenID)
		position.Outcome = outcome
		normalized = append(normalized, normalizedPosition{mapping: mapping, outcome: outcome, pos: position})
	}

	return normalized, unmatched
}

// outcomeForToken derives the outcome a token id represents on venue,
// mirroring the open question in spec §9: never default to YES when the
// token id doesn't resolve to a known side of the mapping.
func outcomeForToken(mapping *types.MarketMapping, venue types.Venue, tokenID string) types.Outcome {
	switch venue {
	case types.VenueA:
		switch tokenID {
		case mapping.YesTokenA:
			return types.OutcomeYes
		case mapping.NoTokenA:
			return types.OutcomeNo
		}
	case types.VenueB:
		switch tokenID {
		case mapping.YesTokenB:
			return types.OutcomeYes
		case mapping.NoTokenB:
			return types.OutcomeNo
		}
	}
	return types.OutcomeUnknown
}

// EventTitle returns the display title for a normalized position, rendering
// Venue-A multi-outcome markets as "<event> - <outcomeName>" per spec §4.4.
func eventTitle(mapping *types.MarketMapping, outcome types.Outcome) string {
	if outcome == types.OutcomeUnknown {
		return mapping.EventTitle
	}
	return fmt.Sprintf("%s - %s", mapping.EventTitle, outcome)
}

// match pairs normalized positions across venues by MarketMapping, forming a
// MatchedPair when exactly one position exists per venue and their outcomes
// are delta-neutral opposites under mapping.IsInverted (spec §4.4
// "Matching"). Any remaining single-sided position is classified unmatched.
func match(positions []normalizedPosition) ([]*types.MatchedPair, []types.UnmatchedPosition) {
	byMapping := make(map[*types.MarketMapping][]normalizedPosition)
	for _, np := range positions {
		byMapping[np.mapping] = append(byMapping[np.mapping], np)
	}

	var pairs []*types.MatchedPair
	var unmatched []types.UnmatchedPosition

	for mapping, group := range byMapping {
		var aPos, bPos *normalizedPosition
		for i := range group {
			g := group[i]
			switch g.pos.Venue {
			case types.VenueA:
				if aPos == nil {
					aPos = &g
				}
			case types.VenueB:
				if bPos == nil {
					bPos = &g
				}
			}
		}

		switch {
		case aPos != nil && bPos != nil:
			expectedB := mapping.ResolveOutcomeB(aPos.outcome)
			if expectedB != types.OutcomeUnknown && expectedB == bPos.outcome {
				pairs = append(pairs, types.NewMatchedPair(mapping, aPos.pos, bPos.pos))
			} else {
				unmatched = append(unmatched,
					types.UnmatchedPosition{Position: aPos.pos, Reason: types.ReasonDirectionMismatch},
					types.UnmatchedPosition{Position: bPos.pos, Reason: types.ReasonDirectionMismatch})
			}
		case aPos != nil:
			unmatched = append(unmatched, types.UnmatchedPosition{Position: aPos.pos, Reason: types.ReasonNoCounterpart})
		case bPos != nil:
			unmatched = append(unmatched, types.UnmatchedPosition{Position: bPos.pos, Reason: types.ReasonNoCounterpart})
		}
	}

	return pairs, unmatched
}
