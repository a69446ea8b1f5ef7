package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/orderbook"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// MappingLookup is the subset of markets.MappingRegistry the handler needs.
type MappingLookup interface {
	MappingForMarket(marketIDA string) (*types.MarketMapping, bool)
}

// OrderbookHandler serves the live cross-venue book pair for a mapped
// market, for operator debugging.
type OrderbookHandler struct {
	obManager *orderbook.Manager
	mappings  MappingLookup
	logger    *zap.Logger
}

// NewOrderbookHandler creates a new orderbook handler.
func NewOrderbookHandler(obMgr *orderbook.Manager, mappings MappingLookup, logger *zap.Logger) *OrderbookHandler {
	return &OrderbookHandler{
		obManager: obMgr,
		mappings:  mappings,
		logger:    logger,
	}
}

// BookSide represents one side of a single asset's book.
type BookSide struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// AssetBook is the cross-venue book for one token.
type AssetBook struct {
	Venue   string     `json:"venue"`
	Outcome string     `json:"outcome"`
	TokenID string     `json:"token_id"`
	Stale   bool       `json:"stale"`
	Bids    []BookSide `json:"bids"`
	Asks    []BookSide `json:"asks"`
}

// OrderbookResponse is the HTTP response for a mapped market's books.
type OrderbookResponse struct {
	MarketIDA    string      `json:"market_id_a"`
	ConditionIDB string      `json:"condition_id_b"`
	EventTitle   string      `json:"event_title"`
	Books        []AssetBook `json:"books"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleOrderbook handles GET /api/orderbook?market_id_a=<id> requests.
func (h *OrderbookHandler) HandleOrderbook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	marketIDA := r.URL.Query().Get("market_id_a")
	if marketIDA == "" {
		h.writeError(w, "missing required query parameter: market_id_a", http.StatusBadRequest)
		return
	}

	mapping, ok := h.mappings.MappingForMarket(marketIDA)
	if !ok {
		h.writeError(w, "no mapping for market_id_a", http.StatusNotFound)
		return
	}

	response := OrderbookResponse{
		MarketIDA:    mapping.MarketIDA,
		ConditionIDB: mapping.ConditionIDB,
		EventTitle:   mapping.EventTitle,
	}

	for _, leg := range []struct {
		venue   types.Venue
		outcome types.Outcome
		token   string
	}{
		{types.VenueA, types.OutcomeYes, mapping.YesTokenA},
		{types.VenueA, types.OutcomeNo, mapping.NoTokenA},
		{types.VenueB, types.OutcomeYes, mapping.YesTokenB},
		{types.VenueB, types.OutcomeNo, mapping.NoTokenB},
	} {
		if leg.token == "" {
			continue
		}
		book, stale, found := h.obManager.GetBook(leg.venue, leg.token)
		if !found {
			h.logger.Debug("orderbook-not-available",
				zap.String("token-id", leg.token),
				zap.String("venue", string(leg.venue)))
			continue
		}
		response.Books = append(response.Books, toAssetBook(leg.venue, leg.outcome, leg.token, stale, book))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func toAssetBook(venue types.Venue, outcome types.Outcome, token string, stale bool, book *types.NormalizedOrderBook) AssetBook {
	ab := AssetBook{Venue: string(venue), Outcome: string(outcome), TokenID: token, Stale: stale}
	for _, lvl := range book.Bids {
		ab.Bids = append(ab.Bids, BookSide{Price: lvl.Price, Size: lvl.Size})
	}
	for _, lvl := range book.Asks {
		ab.Asks = append(ab.Asks, BookSide{Price: lvl.Price, Size: lvl.Size})
	}
	return ab
}

// writeError writes a JSON error response.
func (h *OrderbookHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
