package arbitrage

import "github.com/mselser95/polymarket-arb/pkg/types"

// rebate is the taker-fee rebate applied on Venue-A (spec §4.2, §8 invariant 4).
const rebate = 0.10

// TakerFee returns the Venue-A taker fee per share for a given price and fee
// rate in basis points: fee(p, bps) = (bps/10000) * min(p, 1-p) * (1-rebate).
// Maker side never pays a fee.
func TakerFee(price float64, feeRateBps float64) float64 {
	base := price
	if 1-price < base {
		base = 1 - price
	}
	return types.Round4((feeRateBps / 10000) * base * (1 - rebate))
}
