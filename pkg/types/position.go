package types

import "time"

// Position is a reconciliation read model: created on first on-chain/API
// evidence, mutated only by reconciliation reads, and dropped once shares
// reach zero and the market is redeemable.
type Position struct {
	Venue            Venue
	MarketID         string
	Outcome          Outcome
	Shares           float64
	AverageEntryPrice float64
	CurrentMarkValue float64
	AsOf             time.Time // staleness marker; may be older than Now() on a cache-served read.
}

// MatchedPair is a derived, recomputed-every-tick view of two opposing
// positions (one per venue) for the same underlying event.
type MatchedPair struct {
	Mapping       *MarketMapping
	PositionA     *Position
	PositionB     *Position
	MatchedShares float64
	CostBasisA    float64 // per-share cost basis on Venue-A's leg.
	CostBasisB    float64 // per-share cost basis on Venue-B's leg.
}

// NewMatchedPair computes MatchedShares = min(sharesA, sharesB) and carries
// forward each side's average entry price as its cost basis.
func NewMatchedPair(mapping *MarketMapping, a, b *Position) *MatchedPair {
	matched := a.Shares
	if b.Shares < matched {
		matched = b.Shares
	}
	return &MatchedPair{
		Mapping:       mapping,
		PositionA:     a,
		PositionB:     b,
		MatchedShares: matched,
		CostBasisA:    a.AverageEntryPrice,
		CostBasisB:    b.AverageEntryPrice,
	}
}

// EntryCostPerShare is the combined per-share cost of having opened both
// legs of the pair — the basis close-opportunity calculators subtract
// proceeds from.
func (p *MatchedPair) EntryCostPerShare() float64 {
	return round4(p.CostBasisA + p.CostBasisB)
}

// UnmatchedPosition is a position with no delta-neutral counterpart,
// classified by why reconciliation could not pair it.
type UnmatchedPosition struct {
	Position *Position
	Reason   UnmatchedReason
}
