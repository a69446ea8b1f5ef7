package execution

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/transport"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// VenueAClient is the JWT-authenticated REST client for Venue-A's order
// endpoints. It owns the auth-message/sign/JWT exchange and refreshes the
// token 5 minutes before expiry (spec §4.3).
type VenueAClient struct {
	baseURL    string
	privateKey *ecdsa.PrivateKey
	address    string
	httpClient *http.Client
	logger     *zap.Logger
	breakers   *transport.BreakerRegistry

	mu       sync.Mutex
	token    string
	expiresAt time.Time
}

// VenueAClientConfig configures a VenueAClient.
type VenueAClientConfig struct {
	BaseURL       string
	PrivateKeyHex string
	Address       string
	Timeout       time.Duration
	Logger        *zap.Logger
	Breakers      *transport.BreakerRegistry
}

// NewVenueAClient constructs a VenueAClient from a raw signer key.
func NewVenueAClient(cfg *VenueAClientConfig) (*VenueAClient, error) {
	privateKey, err := crypto.HexToECDSA(trimHexPrefix(cfg.PrivateKeyHex))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &VenueAClient{
		baseURL:    cfg.BaseURL,
		privateKey: privateKey,
		address:    cfg.Address,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
		breakers:   cfg.Breakers,
	}, nil
}

// AuthToken returns a cached JWT, refreshing it 5 minutes before expiry.
// Exported so the market-data websocket client can authenticate its
// wallet-events topic with the same token instead of deriving its own.
func (c *VenueAClient) AuthToken(ctx context.Context) (string, error) {
	return c.authToken(ctx)
}

// authToken returns a cached JWT, refreshing it 5 minutes before expiry.
func (c *VenueAClient) authToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Until(c.expiresAt) > 5*time.Minute {
		return c.token, nil
	}

	var msgResp struct {
		Message string `json:"message"`
	}
	if err := c.unauthenticatedRequest(ctx, http.MethodGet, "/v1/auth/message", nil, &msgResp); err != nil {
		return "", fmt.Errorf("fetch auth message: %w", err)
	}

	signature, err := crypto.Sign(crypto.Keccak256([]byte(msgResp.Message)), c.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign auth message: %w", err)
	}

	body, err := json.Marshal(map[string]string{
		"address":   c.address,
		"message":   msgResp.Message,
		"signature": "0x" + common.Bytes2Hex(signature),
	})
	if err != nil {
		return "", fmt.Errorf("marshal auth request: %w", err)
	}

	var authResp struct {
		Token string `json:"token"`
	}
	if err := c.unauthenticatedRequest(ctx, http.MethodPost, "/v1/auth", body, &authResp); err != nil {
		return "", &types.AuthError{Venue: types.VenueA, Reason: err.Error()}
	}

	expiresAt, err := jwtExpiry(authResp.Token)
	if err != nil {
		return "", &types.AuthError{Venue: types.VenueA, Reason: "unparseable JWT: " + err.Error()}
	}

	c.token = authResp.Token
	c.expiresAt = expiresAt
	c.logger.Info("venue-a-auth-refreshed", zap.Time("expires-at", expiresAt))
	return c.token, nil
}

// jwtExpiry parses a JWT's exp claim without verifying the signature (the
// client trusts the venue that just issued it over this same TLS connection).
func jwtExpiry(token string) (time.Time, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	_, _, err := parser.ParseUnverified(token, claims)
	if err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("no exp claim")
	}
	return exp.Time, nil
}

// PlaceOrder submits a signed order to Venue-A's order endpoint.
func (c *VenueAClient) PlaceOrder(ctx context.Context, env *types.SignedOrderEnvelope) (*types.OpenOrder, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	var resp struct {
		OrderID string `json:"orderId"`
		Status  string `json:"status"`
		Error   string `json:"error"`
	}
	if err := c.authenticatedRequest(ctx, http.MethodPost, "/v1/orders", body, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &types.ExchangeError{Venue: types.VenueA, Code: resp.Status, Msg: resp.Error}
	}

	return &types.OpenOrder{
		Venue:     types.VenueA,
		OrderID:   resp.OrderID,
		Side:      env.Side,
		Price:     env.Price,
		Status:    mapVenueAStatus(resp.Status),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}, nil
}

// CancelOrder posts a signed cancel for an open order.
func (c *VenueAClient) CancelOrder(ctx context.Context, orderID string) error {
	var resp map[string]any
	return c.authenticatedRequest(ctx, http.MethodDelete, "/v1/orders/"+orderID, nil, &resp)
}

// GetOrderStatus reads an order's current state.
func (c *VenueAClient) GetOrderStatus(ctx context.Context, orderID string) (*types.OpenOrder, error) {
	var resp struct {
		OrderID    string  `json:"orderId"`
		Status     string  `json:"status"`
		Side       string  `json:"side"`
		Price      float64 `json:"price"`
		Size       float64 `json:"size"`
		SizeFilled float64 `json:"sizeFilled"`
	}
	if err := c.authenticatedRequest(ctx, http.MethodGet, "/v1/orders/"+orderID, nil, &resp); err != nil {
		return nil, err
	}

	return &types.OpenOrder{
		Venue:        types.VenueA,
		OrderID:      resp.OrderID,
		Side:         types.Side(resp.Side),
		Price:        resp.Price,
		OriginalSize: resp.Size,
		FilledSize:   resp.SizeFilled,
		Status:       mapVenueAStatus(resp.Status),
		UpdatedAt:    time.Now(),
	}, nil
}

func (c *VenueAClient) authenticatedRequest(ctx context.Context, method, path string, body []byte, out any) error {
	token, err := c.authToken(ctx)
	if err != nil {
		return err
	}
	return c.doRequest(ctx, method, path, body, out, token)
}

func (c *VenueAClient) unauthenticatedRequest(ctx context.Context, method, path string, body []byte, out any) error {
	return c.doRequest(ctx, method, path, body, out, "")
}

func (c *VenueAClient) doRequest(ctx context.Context, method, path string, body []byte, out any, bearer string) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &types.TransportError{Venue: types.VenueA, Op: method + " " + path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	var statusCode int
	roundTrip := func() ([]byte, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &types.TransportError{Venue: types.VenueA, Op: method + " " + path, Err: err}
		}
		defer resp.Body.Close()
		statusCode = resp.StatusCode

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &types.TransportError{Venue: types.VenueA, Op: "read-body", Err: err}
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &types.RateLimitError{Venue: types.VenueA, Endpoint: path}
		}
		return respBody, nil
	}

	respBody, err := c.throughBreaker(ctx, method, path, roundTrip)
	if err != nil {
		return err
	}

	if statusCode == http.StatusUnauthorized {
		return &types.AuthError{Venue: types.VenueA, Reason: "token rejected"}
	}
	if statusCode >= 300 {
		return &types.ExchangeError{Venue: types.VenueA, Code: strconv.Itoa(statusCode), Msg: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &types.ProtocolError{Venue: types.VenueA, Frame: "rest-response", Err: err}
	}
	return nil
}

// throughBreaker routes the round trip through the shared BreakerRegistry
// when one is configured, falling back to a direct call otherwise (e.g. in
// tests that construct a VenueAClient without one). GET requests are
// allowed to serve a stale cached response while the breaker is open;
// mutating requests never replay a cached body.
func (c *VenueAClient) throughBreaker(ctx context.Context, method, path string, fn func() ([]byte, error)) ([]byte, error) {
	if c.breakers == nil {
		return fn()
	}
	if method == http.MethodGet {
		return c.breakers.Do(ctx, string(types.VenueA), path, fn)
	}
	return c.breakers.DoNoCache(ctx, string(types.VenueA), path, fn)
}

func mapVenueAStatus(raw string) types.OrderStatus {
	switch raw {
	case "filled":
		return types.OrderFilled
	case "partially_filled":
		return types.OrderPartiallyFilled
	case "live", "open":
		return types.OrderLive
	case "cancelled", "canceled":
		return types.OrderCancelled
	case "expired":
		return types.OrderExpired
	default:
		return types.OrderPending
	}
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
