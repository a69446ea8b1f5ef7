package execution

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/transport"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// VenueBClient is the HMAC-authenticated REST client for Venue-B's CLOB
// (order submission, cancellation, and status polling). Signing
// (message = timestamp+method+path+body) follows spec §4.3.
type VenueBClient struct {
	baseURL    string
	apiKey     string
	secret     string
	passphrase string
	address    string
	httpClient *http.Client
	logger     *zap.Logger
	breakers   *transport.BreakerRegistry
}

// VenueBClientConfig configures a VenueBClient.
type VenueBClientConfig struct {
	BaseURL    string
	APIKey     string
	Secret     string
	Passphrase string
	Address    string
	Timeout    time.Duration
	Logger     *zap.Logger
	Breakers   *transport.BreakerRegistry
}

// NewVenueBClient constructs a VenueBClient.
func NewVenueBClient(cfg *VenueBClientConfig) *VenueBClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &VenueBClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		secret:     cfg.Secret,
		passphrase: cfg.Passphrase,
		address:    cfg.Address,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
		breakers:   cfg.Breakers,
	}
}

// PlaceOrder submits a signed order to POST /order.
func (c *VenueBClient) PlaceOrder(ctx context.Context, env *types.SignedOrderEnvelope) (*types.OpenOrder, error) {
	req := types.OrderSubmissionRequest{
		Order:     toSignedOrderJSON(env),
		Owner:     c.apiKey,
		OrderType: string(env.TimeInForce),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	var resp types.OrderSubmissionResponse
	if err := c.signedRequest(ctx, http.MethodPost, "/order", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &types.ExchangeError{Venue: types.VenueB, Code: resp.Status, Msg: resp.ErrorMsg}
	}

	return &types.OpenOrder{
		Venue:        types.VenueB,
		OrderID:      resp.OrderID,
		Side:         env.Side,
		Price:        env.Price,
		OriginalSize: env.Price, // placeholder until the first status read populates shares.
		Status:       mapVenueBStatus(resp.Status),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}, nil
}

// CancelOrder posts a signed DELETE for an open order.
func (c *VenueBClient) CancelOrder(ctx context.Context, orderID string) error {
	body, err := json.Marshal(map[string]string{"orderID": orderID})
	if err != nil {
		return fmt.Errorf("marshal cancel request: %w", err)
	}
	var resp map[string]any
	return c.signedRequest(ctx, http.MethodDelete, "/order", body, &resp)
}

// GetOrderStatus reads the current state of an order via GET /order/{orderID}.
func (c *VenueBClient) GetOrderStatus(ctx context.Context, orderID string) (*types.OpenOrder, error) {
	var resp types.OrderQueryResponse
	path := "/order/" + orderID
	if err := c.signedRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	return &types.OpenOrder{
		Venue:        types.VenueB,
		OrderID:      resp.OrderID,
		Side:         types.Side(resp.Side),
		Price:        resp.Price,
		OriginalSize: resp.Size,
		FilledSize:   resp.SizeFilled,
		Status:       mapVenueBStatus(resp.Status),
		UpdatedAt:    time.Now(),
	}, nil
}

// signedRequest builds and sends an HMAC-signed request, decoding the JSON
// response body into out (a no-op when out is nil).
func (c *VenueBClient) signedRequest(ctx context.Context, method, path string, body []byte, out any) error {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature, err := c.sign(timestamp, method, path, body)
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &types.TransportError{Venue: types.VenueB, Op: method + " " + path, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("POLY_API_KEY", c.apiKey)
	httpReq.Header.Set("POLY_SIGNATURE", signature)
	httpReq.Header.Set("POLY_TIMESTAMP", timestamp)
	httpReq.Header.Set("POLY_PASSPHRASE", c.passphrase)
	httpReq.Header.Set("POLY_ADDRESS", c.address)

	var statusCode int
	roundTrip := func() ([]byte, error) {
		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, &types.TransportError{Venue: types.VenueB, Op: method + " " + path, Err: err}
		}
		defer httpResp.Body.Close()
		statusCode = httpResp.StatusCode

		respBody, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, &types.TransportError{Venue: types.VenueB, Op: "read-body", Err: err}
		}
		if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500 {
			return nil, &types.RateLimitError{Venue: types.VenueB, Endpoint: path}
		}
		return respBody, nil
	}

	respBody, err := c.throughBreaker(ctx, method, path, roundTrip)
	if err != nil {
		return err
	}

	if statusCode != http.StatusOK && statusCode != http.StatusCreated {
		return &types.ExchangeError{Venue: types.VenueB, Code: strconv.Itoa(statusCode), Msg: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &types.ProtocolError{Venue: types.VenueB, Frame: "rest-response", Err: err}
	}
	return nil
}

// throughBreaker routes the round trip through the shared BreakerRegistry
// when one is configured (nil in tests that construct a VenueBClient
// directly). GETs may serve a stale cached response while the breaker is
// open; mutating requests never replay a cached body.
func (c *VenueBClient) throughBreaker(ctx context.Context, method, path string, fn func() ([]byte, error)) ([]byte, error) {
	if c.breakers == nil {
		return fn()
	}
	if method == http.MethodGet {
		return c.breakers.Do(ctx, string(types.VenueB), path, fn)
	}
	return c.breakers.DoNoCache(ctx, string(types.VenueB), path, fn)
}

// sign computes HMAC-SHA256(secret, timestamp+method+path+body), base64
// URL-safe encoded, per spec §4.3. The path never includes a query string.
func (c *VenueBClient) sign(timestamp, method, path string, body []byte) (string, error) {
	secretBytes, err := base64.URLEncoding.DecodeString(c.secret)
	if err != nil {
		return "", fmt.Errorf("decode secret: %w", err)
	}

	message := timestamp + method + path + string(body)
	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(message))
	return base64.URLEncoding.EncodeToString(h.Sum(nil)), nil
}

func toSignedOrderJSON(env *types.SignedOrderEnvelope) types.SignedOrderJSON {
	return types.SignedOrderJSON{
		Maker:         "", // left empty: SignedOrderEnvelope carries no maker address.
		TokenID:       env.TokenID,
		MakerAmount:   env.MakerAmount,
		TakerAmount:   env.TakerAmount,
		Side:          string(env.Side),
		Expiration:    strconv.FormatInt(env.Expiration, 10),
		Nonce:         env.Nonce,
		FeeRateBps:    env.FeeRateBps,
		SignatureType: env.SignatureType,
		Signature:     env.Signature,
	}
}

func mapVenueBStatus(raw string) types.OrderStatus {
	switch raw {
	case "matched", "filled":
		return types.OrderFilled
	case "live":
		return types.OrderLive
	case "delayed":
		return types.OrderPending
	case "unmatched", "cancelled", "canceled":
		return types.OrderCancelled
	default:
		return types.OrderPending
	}
}
