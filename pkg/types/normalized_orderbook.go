package types

import "math"

// PriceSize is a single (price, size) level of a normalized book. Price is
// always in (0,1); size is in shares.
type PriceSize struct {
	Price float64
	Size  float64
}

// NormalizedOrderBook is a per-(venue, asset) snapshot with sorted sides.
// Asks are strictly non-decreasing, bids strictly non-increasing, after
// dedup by price. UpdateTimestampMs is monotonically non-decreasing per
// asset; callers use it to judge staleness.
type NormalizedOrderBook struct {
	Venue            Venue
	MarketID         string
	AssetID          string
	Outcome          Outcome
	UpdateTimestampMs int64
	Asks             []PriceSize
	Bids             []PriceSize
	MinOrderSize     float64
	TickSize         float64
	NegRisk          bool
}

// BestAsk returns the lowest ask, or (0,0,false) if the book is empty.
func (b *NormalizedOrderBook) BestAsk() (price, size float64, ok bool) {
	if len(b.Asks) == 0 {
		return 0, 0, false
	}
	return b.Asks[0].Price, b.Asks[0].Size, true
}

// BestBid returns the highest bid, or (0,0,false) if the book is empty.
func (b *NormalizedOrderBook) BestBid() (price, size float64, ok bool) {
	if len(b.Bids) == 0 {
		return 0, 0, false
	}
	return b.Bids[0].Price, b.Bids[0].Size, true
}

// Invert derives the complementary-outcome view of this book: NO bids/asks
// from a YES book (or vice-versa), via p_no = 1 - p_yes applied pointwise.
// Because 1-p reverses price order, YES bids (descending) map level for
// level onto NO asks (ascending) and YES asks onto NO bids, so both sides of
// the result stay sorted; size is preserved per level.
func (b *NormalizedOrderBook) Invert() *NormalizedOrderBook {
	inv := &NormalizedOrderBook{
		Venue:             b.Venue,
		MarketID:          b.MarketID,
		AssetID:           b.AssetID,
		Outcome:           b.Outcome.Invert(),
		UpdateTimestampMs: b.UpdateTimestampMs,
		MinOrderSize:      b.MinOrderSize,
		TickSize:          b.TickSize,
		NegRisk:           b.NegRisk,
	}

	// YES bids (descending) become NO asks (ascending): invert price, keep level order.
	inv.Asks = make([]PriceSize, len(b.Bids))
	for i, lvl := range b.Bids {
		inv.Asks[i] = PriceSize{Price: round4(1 - lvl.Price), Size: lvl.Size}
	}

	// YES asks (ascending) become NO bids (descending): invert price, keep level order.
	inv.Bids = make([]PriceSize, len(b.Asks))
	for i, lvl := range b.Asks {
		inv.Bids[i] = PriceSize{Price: round4(1 - lvl.Price), Size: lvl.Size}
	}

	return inv
}

// CumulativeDepth walks the given side (true=asks, false=bids) from the best
// price until the price leaves a maxSlippagePct band around the best price,
// returning the total quantity available within the band and its
// size-weighted average price.
func CumulativeDepth(levels []PriceSize, maxSlippagePct float64) (totalQty, avgPrice float64) {
	if len(levels) == 0 {
		return 0, 0
	}

	best := levels[0].Price
	band := best * maxSlippagePct

	var notional float64
	for _, lvl := range levels {
		if math.Abs(lvl.Price-best) > band {
			break
		}
		totalQty += lvl.Size
		notional += lvl.Price * lvl.Size
	}

	if totalQty == 0 {
		return 0, 0
	}
	return totalQty, round4(notional / totalQty)
}

// round4 rounds to 4-decimal fixed point, matching the numerical policy in
// spec §4.2 (".toFixed(4)" semantics).
func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

// Round4 exports round4 for use outside this package.
func Round4(x float64) float64 { return round4(x) }

// Epsilon is the boundary-comparison tolerance used throughout the depth and
// arbitrage calculators.
const Epsilon = 1e-4
