// Package reconciliation implements C4: periodic position reconciliation
// across both venues and the matched-pair close-opportunity engine (spec
// §4.4) that feeds SELL tasks back into the C5 scheduler.
package reconciliation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// VenuePosition is a single venue's raw position reading, before
// cross-venue normalization.
type VenuePosition struct {
	Venue    types.Venue
	MarketID string // Venue-A marketId, or Venue-B conditionId.
	TokenID  string
	Shares   float64
	AvgPrice float64
	MarkValue float64
}

// PositionSource fetches the current position list for one venue. Venue-A is
// backed by its GraphQL positions endpoint, Venue-B by its data-api positions
// endpoint. Neither implementation reads open orders.
type PositionSource interface {
	FetchPositions(ctx context.Context) ([]VenuePosition, error)
}

// VenueAPositionSource reads Venue-A positions via its GraphQL subgraph,
// read-only and unauthenticated (positions are queried by address, not
// bearer token). It does not query open orders; restURL is stored but unused.
type VenueAPositionSource struct {
	graphQLURL string
	restURL    string
	address    string
	httpClient *http.Client
	logger     *zap.Logger
}

// VenueAPositionSourceConfig configures a VenueAPositionSource.
type VenueAPositionSourceConfig struct {
	GraphQLURL string
	RESTURL    string
	Address    string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// NewVenueAPositionSource constructs a VenueAPositionSource.
func NewVenueAPositionSource(cfg VenueAPositionSourceConfig) *VenueAPositionSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VenueAPositionSource{
		graphQLURL: cfg.GraphQLURL,
		restURL:    cfg.RESTURL,
		address:    cfg.Address,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// graphQLPositionsQuery mirrors the minimal subgraph query needed to read an
// owner's current CTF token balances, one row per (marketId, tokenId).
const graphQLPositionsQuery = `{"query":"{ userPositions(where:{user:\"%s\"}) { market { id } tokenId netQuantity avgPrice curPrice } }"}`

// FetchPositions queries Venue-A's GraphQL subgraph for the wallet's open
// CTF positions.
func (s *VenueAPositionSource) FetchPositions(ctx context.Context) ([]VenuePosition, error) {
	body := []byte(fmt.Sprintf(graphQLPositionsQuery, s.address))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.graphQLURL, bytes.NewReader(body))
	if err != nil {
		return nil, &types.TransportError{Venue: types.VenueA, Op: "build-graphql-request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &types.TransportError{Venue: types.VenueA, Op: "positions-graphql", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.TransportError{Venue: types.VenueA, Op: "read-graphql-body", Err: err}
	}
	if resp.StatusCode >= 300 {
		return nil, &types.ExchangeError{Venue: types.VenueA, Code: fmt.Sprintf("%d", resp.StatusCode), Msg: string(raw)}
	}

	var parsed struct {
		Data struct {
			UserPositions []struct {
				Market struct {
					ID string `json:"id"`
				} `json:"market"`
				TokenID      string  `json:"tokenId"`
				NetQuantity  float64 `json:"netQuantity"`
				AvgPrice     float64 `json:"avgPrice"`
				CurPrice     float64 `json:"curPrice"`
			} `json:"userPositions"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &types.ProtocolError{Venue: types.VenueA, Frame: "graphql-response", Err: err}
	}

	out := make([]VenuePosition, 0, len(parsed.Data.UserPositions))
	for _, p := range parsed.Data.UserPositions {
		if p.NetQuantity == 0 {
			continue
		}
		out = append(out, VenuePosition{
			Venue:     types.VenueA,
			MarketID:  p.Market.ID,
			TokenID:   p.TokenID,
			Shares:    p.NetQuantity,
			AvgPrice:  p.AvgPrice,
			MarkValue: p.NetQuantity * p.CurPrice,
		})
	}
	return out, nil
}

// VenueBPositionSource reads Venue-B positions from its data-api. It does
// not query CLOB open orders.
type VenueBPositionSource struct {
	dataAPIURL string
	clobURL    string
	address    string
	httpClient *http.Client
	logger     *zap.Logger
}

// VenueBPositionSourceConfig configures a VenueBPositionSource.
type VenueBPositionSourceConfig struct {
	DataAPIURL string
	CLOBURL    string
	Address    string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// NewVenueBPositionSource constructs a VenueBPositionSource.
func NewVenueBPositionSource(cfg VenueBPositionSourceConfig) *VenueBPositionSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VenueBPositionSource{
		dataAPIURL: cfg.DataAPIURL,
		clobURL:    cfg.CLOBURL,
		address:    cfg.Address,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchPositions queries Venue-B's data-api /positions endpoint for the
// proxy wallet's current CTF holdings.
func (s *VenueBPositionSource) FetchPositions(ctx context.Context) ([]VenuePosition, error) {
	q := url.Values{}
	q.Set("user", s.address)
	requestURL := s.dataAPIURL + "/positions?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &types.TransportError{Venue: types.VenueB, Op: "build-positions-request", Err: err}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &types.TransportError{Venue: types.VenueB, Op: "positions-data-api", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.TransportError{Venue: types.VenueB, Op: "read-positions-body", Err: err}
	}
	if resp.StatusCode >= 300 {
		return nil, &types.ExchangeError{Venue: types.VenueB, Code: fmt.Sprintf("%d", resp.StatusCode), Msg: string(raw)}
	}

	var rows []struct {
		ConditionID string  `json:"conditionId"`
		Asset       string  `json:"asset"`
		Size        float64 `json:"size"`
		AvgPrice    float64 `json:"avgPrice"`
		CurPrice    float64 `json:"curPrice"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &types.ProtocolError{Venue: types.VenueB, Frame: "positions-response", Err: err}
	}

	out := make([]VenuePosition, 0, len(rows))
	for _, r := range rows {
		if r.Size == 0 {
			continue
		}
		out = append(out, VenuePosition{
			Venue:     types.VenueB,
			MarketID:  r.ConditionID,
			TokenID:   r.Asset,
			Shares:    r.Size,
			AvgPrice:  r.AvgPrice,
			MarkValue: r.Size * r.CurPrice,
		})
	}
	return out, nil
}
