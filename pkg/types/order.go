package types

import "time"

// OpenOrder is a venue order as observed by any of the three C3 latency
// channels (venue WS, on-chain WS, REST poll). Filled never exceeds
// Original; once Status reaches a terminal value it is sticky.
type OpenOrder struct {
	Venue         Venue
	OrderID       string // exchange-assigned id (Venue-B) or order hash (Venue-A).
	Side          Side
	Outcome       Outcome // OutcomeUnknown unless derivable from token id + MarketMapping.
	Price         float64
	OriginalSize  float64
	FilledSize    float64
	Status        OrderStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ApplyFill advances FilledSize/Status, refusing to move a terminal order.
// Returns false if the order was already terminal (a no-op, logged by the
// caller) so that terminal-state stickiness (spec §8 invariant 7) holds.
func (o *OpenOrder) ApplyFill(filled float64, status OrderStatus) bool {
	if o.Status.IsTerminal() {
		return false
	}
	o.FilledSize = filled
	o.Status = status
	o.UpdatedAt = time.Now()
	return true
}

// FillStatus is the result of a single fill-verification read, used by the
// REST-poll latency channel and surfaced to task events.
type FillStatus struct {
	OrderID      string
	Outcome      string
	OriginalSize float64
	SizeFilled   float64
	ActualPrice  float64
	Status       string
	FullyFilled  bool
	VerifiedAt   time.Time
	Error        error
}

// SignedOrderEnvelope carries a venue-agnostic signed EIP-712 order plus the
// bookkeeping needed to submit and later recognize it across latency
// channels.
type SignedOrderEnvelope struct {
	Venue         Venue
	OrderHash     string
	TokenID       string
	Side          Side
	Price         float64
	MakerAmount   string // raw integer-unit string (venue-specific decimals).
	TakerAmount   string
	Expiration    int64
	Nonce         string
	FeeRateBps    string
	SignatureType int
	Signature     string
	TimeInForce   TimeInForce
	NegRisk       bool
}
