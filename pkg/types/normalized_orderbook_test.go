package types

import "testing"

// S4: NO-side inversion of a YES book must invert price (p_no = 1 - p_yes),
// swap sides, and keep each side sorted (asks ascending, bids descending).
func TestNormalizedOrderBook_Invert(t *testing.T) {
	yes := &NormalizedOrderBook{
		Venue:   VenueA,
		AssetID: "yes-token",
		Outcome: OutcomeYes,
		Asks:    []PriceSize{{Price: 0.45, Size: 10}, {Price: 0.48, Size: 20}},
		Bids:    []PriceSize{{Price: 0.40, Size: 15}, {Price: 0.38, Size: 5}},
	}

	no := yes.Invert()

	if no.Outcome != OutcomeNo {
		t.Fatalf("expected outcome NO, got %s", no.Outcome)
	}

	// YES bids (desc: 0.40, 0.38) invert to NO asks (asc): 0.62, 0.60
	wantAsks := []PriceSize{{Price: 0.60, Size: 5}, {Price: 0.62, Size: 15}}
	if len(no.Asks) != len(wantAsks) {
		t.Fatalf("expected %d asks, got %d", len(wantAsks), len(no.Asks))
	}
	for i, lvl := range wantAsks {
		if no.Asks[i] != lvl {
			t.Errorf("ask[%d] = %+v, want %+v", i, no.Asks[i], lvl)
		}
	}

	// YES asks (asc: 0.45, 0.48) invert to NO bids (desc): 0.55, 0.52
	wantBids := []PriceSize{{Price: 0.55, Size: 10}, {Price: 0.52, Size: 20}}
	if len(no.Bids) != len(wantBids) {
		t.Fatalf("expected %d bids, got %d", len(wantBids), len(no.Bids))
	}
	for i, lvl := range wantBids {
		if no.Bids[i] != lvl {
			t.Errorf("bid[%d] = %+v, want %+v", i, no.Bids[i], lvl)
		}
	}
}

func TestNormalizedOrderBook_BestAskBid_Empty(t *testing.T) {
	b := &NormalizedOrderBook{}
	if _, _, ok := b.BestAsk(); ok {
		t.Fatal("expected no best ask on empty book")
	}
	if _, _, ok := b.BestBid(); ok {
		t.Fatal("expected no best bid on empty book")
	}
}

func TestCumulativeDepth_StopsAtSlippageBand(t *testing.T) {
	levels := []PriceSize{
		{Price: 0.50, Size: 10},
		{Price: 0.51, Size: 10},
		{Price: 0.60, Size: 100}, // outside a 5% band from 0.50
	}
	qty, avg := CumulativeDepth(levels, 0.05)
	if qty != 20 {
		t.Fatalf("expected qty 20, got %v", qty)
	}
	if avg != 0.505 {
		t.Fatalf("expected avg 0.505, got %v", avg)
	}
}
