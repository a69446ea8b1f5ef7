package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/mselser95/polymarket-arb/internal/arbitrage"
	"github.com/mselser95/polymarket-arb/internal/orderbook"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

func TestExecuteArbCommand_Structure(t *testing.T) {
	if executeArbCmd == nil {
		t.Fatal("executeArbCmd is nil")
	}

	if executeArbCmd.Use != "execute-arb <market-id-a>" {
		t.Errorf("expected Use='execute-arb <market-id-a>', got '%s'", executeArbCmd.Use)
	}

	if executeArbCmd.RunE == nil {
		t.Error("RunE function is nil")
	}
}

func TestExecuteArbCommand_Flags(t *testing.T) {
	tests := []struct {
		name      string
		flag      string
		shorthand string
		defValue  string
	}{
		{name: "max-position", flag: "max-position", shorthand: "m", defValue: "0"},
		{name: "wait", flag: "wait", shorthand: "", defValue: "30s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := executeArbCmd.Flags().Lookup(tt.flag)
			if flag == nil {
				t.Fatalf("%s flag not defined", tt.flag)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected %s shorthand '%s', got '%s'", tt.flag, tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected %s default '%s', got '%s'", tt.flag, tt.defValue, flag.DefValue)
			}
		})
	}
}

func TestPriceLevelsToSize(t *testing.T) {
	levels := []types.PriceLevel{
		{Price: "0.42", Size: "100"},
		{Price: "not-a-number", Size: "50"},
		{Price: "0.40", Size: "not-a-number"},
	}

	out := priceLevelsToSize(levels)
	if len(out) != 1 {
		t.Fatalf("expected 1 valid level, got %d", len(out))
	}
	if out[0].Price != 0.42 || out[0].Size != 100 {
		t.Errorf("unexpected level: %+v", out[0])
	}
}

func TestAdaptVenueBMessages_TranslatesBookFrame(t *testing.T) {
	mapping := &types.MarketMapping{
		ConditionIDB: "condition-1",
		YesTokenB:    "yes-token-b",
		NoTokenB:     "no-token-b",
	}

	in := make(chan *types.OrderbookMessage, 1)
	out := make(chan *orderbook.RawUpdate, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go adaptVenueBMessages(ctx, mapping, in, out)

	in <- &types.OrderbookMessage{
		EventType: "book",
		AssetID:   "no-token-b",
		Market:    "condition-1",
		Bids:      []types.PriceLevel{{Price: "0.30", Size: "10"}},
		Asks:      []types.PriceLevel{{Price: "0.35", Size: "10"}},
	}

	select {
	case upd := <-out:
		if upd.Venue != types.VenueB {
			t.Errorf("expected venue-b, got %s", upd.Venue)
		}
		if upd.Outcome != types.OutcomeNo {
			t.Errorf("expected outcome NO, got %s", upd.Outcome)
		}
		if len(upd.Asks) != 1 || upd.Asks[0].Price != 0.35 {
			t.Errorf("unexpected asks: %+v", upd.Asks)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for adapted update")
	}
}

func TestPrintArbRead_DoesNotPanic(t *testing.T) {
	printArbRead(arbitrage.BuyCosts{MakerHasArb: false, TakerHasArb: false})
	printArbRead(arbitrage.BuyCosts{MakerHasArb: true, MakerCost: 0.97, MakerMaxQty: 10})
}
