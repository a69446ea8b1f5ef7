package types

import (
	"encoding/json"
	"strconv"
)

// UserOrderEvent is a single frame on the Venue-B user channel reporting an
// order's lifecycle transition (placement, fill, cancellation).
type UserOrderEvent struct {
	EventType    string `json:"event_type"` // "order"
	ID           string `json:"id"`
	AssetID      string `json:"asset_id"`
	Market       string `json:"market"`
	Side         string `json:"side"`
	Status       string `json:"status"`
	Price        string `json:"price"`
	OriginalSize string `json:"original_size"`
	SizeMatched  string `json:"size_matched"`
	Timestamp    int64  `json:"-"`
}

// UnmarshalJSON parses the string timestamp Venue-B sends.
func (e *UserOrderEvent) UnmarshalJSON(data []byte) error {
	type Alias UserOrderEvent
	aux := &struct {
		TimestampStr string `json:"timestamp"`
		*Alias
	}{Alias: (*Alias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.TimestampStr != "" {
		if ts, err := strconv.ParseInt(aux.TimestampStr, 10, 64); err == nil {
			e.Timestamp = ts
		}
	}
	return nil
}

// ToOpenOrder projects a user-channel order event into the venue-agnostic
// OpenOrder shape the C3 latency channels compare against each other.
func (e *UserOrderEvent) ToOpenOrder() *OpenOrder {
	price, _ := strconv.ParseFloat(e.Price, 64)
	original, _ := strconv.ParseFloat(e.OriginalSize, 64)
	matched, _ := strconv.ParseFloat(e.SizeMatched, 64)
	return &OpenOrder{
		Venue:        VenueB,
		OrderID:      e.ID,
		Side:         Side(e.Side),
		Price:        price,
		OriginalSize: original,
		FilledSize:   matched,
		Status:       mapUserChannelStatus(e.Status),
	}
}

func mapUserChannelStatus(status string) OrderStatus {
	switch status {
	case "LIVE", "PLACEMENT":
		return OrderLive
	case "MATCHED", "FILLED":
		return OrderFilled
	case "CANCELLED":
		return OrderCancelled
	default:
		return OrderLive
	}
}

// UserTradeEvent is a single frame reporting a trade execution against one
// of our orders.
type UserTradeEvent struct {
	EventType string `json:"event_type"` // "trade"
	ID        string `json:"id"`
	OrderID   string `json:"maker_order_id"`
	AssetID   string `json:"asset_id"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Size      string `json:"size"`
}
