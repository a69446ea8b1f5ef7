package app

import (
	"context"
	"strconv"

	"github.com/mselser95/polymarket-arb/internal/markets"
	"github.com/mselser95/polymarket-arb/internal/orderbook"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// forwardRawUpdates copies Venue-A's push updates onto the shared orderbook
// input channel, so both venues feed the same cache through one path.
func forwardRawUpdates(ctx context.Context, in <-chan orderbook.RawUpdate, out chan<- *orderbook.RawUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-in:
			if !ok {
				return
			}
			cp := upd
			select {
			case out <- &cp:
			case <-ctx.Done():
				return
			}
		}
	}
}

// adaptVenueBBooks translates Venue-B's push-WS orderbook frames into the
// shared RawUpdate shape, resolving the owning mapping per message since the
// production subscription spans every curated market, not one.
func adaptVenueBBooks(ctx context.Context, mappings *markets.MappingRegistry, in <-chan *types.OrderbookMessage, out chan<- *orderbook.RawUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			if msg.EventType != "book" && msg.EventType != "price_change" {
				continue
			}

			mapping, found := mappings.MappingForAsset(msg.AssetID)
			if !found {
				continue
			}

			outcome := types.OutcomeUnknown
			switch msg.AssetID {
			case mapping.YesTokenB:
				outcome = types.OutcomeYes
			case mapping.NoTokenB:
				outcome = types.OutcomeNo
			}

			upd := &orderbook.RawUpdate{
				Venue:             types.VenueB,
				MarketID:          mapping.ConditionIDB,
				AssetID:           msg.AssetID,
				Outcome:           outcome,
				UpdateTimestampMs: msg.Timestamp,
				Asks:              priceLevelsToSize(msg.Asks),
				Bids:              priceLevelsToSize(msg.Bids),
				Incremental:       msg.EventType == "price_change",
			}
			select {
			case out <- upd:
			case <-ctx.Done():
				return
			}
		}
	}
}

func priceLevelsToSize(levels []types.PriceLevel) []types.PriceSize {
	if levels == nil {
		return nil
	}
	out := make([]types.PriceSize, 0, len(levels))
	for _, lvl := range levels {
		price, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(lvl.Size, 64)
		if err != nil {
			continue
		}
		out = append(out, types.PriceSize{Price: price, Size: size})
	}
	return out
}
