package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/markets"
	"github.com/mselser95/polymarket-arb/internal/orderbook"
	"github.com/mselser95/polymarket-arb/pkg/healthprobe"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

func testMappingRegistry() *markets.MappingRegistry {
	reg := markets.NewMappingRegistry(markets.MappingRegistryConfig{Logger: zap.NewNop()})
	reg.Load([]*types.MarketMapping{{
		MarketIDA:    "market-a-1",
		ConditionIDB: "condition-b-1",
		YesTokenA:    "yes-a",
		NoTokenA:     "no-a",
		YesTokenB:    "yes-b",
		NoTokenB:     "no-b",
		EventTitle:   "will-it-rain",
	}})
	return reg
}

func TestNew(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	tests := []struct {
		name string
		cfg  *Config
	}{
		{
			name: "valid_config_minimal",
			cfg: &Config{
				Port:          "8080",
				Logger:        logger,
				HealthChecker: healthChecker,
			},
		},
		{
			name: "valid_config_with_orderbook",
			cfg: &Config{
				Port:             "8080",
				Logger:           logger,
				HealthChecker:    healthChecker,
				OrderbookManager: orderbook.New(&orderbook.Config{Logger: logger, MessageChannel: make(chan *orderbook.RawUpdate)}),
				Mappings:         testMappingRegistry(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := New(tt.cfg)
			if server == nil {
				t.Fatal("New() returned nil server")
			}
			if server.logger != tt.cfg.Logger {
				t.Error("New() logger not set correctly")
			}
			if server.healthChecker != tt.cfg.HealthChecker {
				t.Error("New() healthChecker not set correctly")
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{Port: "0", Logger: logger, HealthChecker: healthChecker}
	server := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Health endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestReadyEndpoint(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		setReady       bool
		expectedStatus int
	}{
		{name: "ready_when_set", setReady: true, expectedStatus: http.StatusOK},
		{name: "not_ready_initially", setReady: false, expectedStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := healthprobe.New()
			if tt.setReady {
				hc.SetReady(true)
			}

			server := New(&Config{Port: "0", Logger: logger, HealthChecker: hc})

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()
			server.server.Handler.ServeHTTP(w, req)

			resp := w.Result()
			defer resp.Body.Close()
			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("Ready endpoint status = %d, want %d", resp.StatusCode, tt.expectedStatus)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	logger := zap.NewNop()
	server := New(&Config{Port: "0", Logger: logger, HealthChecker: healthprobe.New()})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Metrics endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read metrics response body: %v", err)
	}
	if len(body) == 0 {
		t.Error("Metrics endpoint returned empty body")
	}
}

func newOrderbookTestServer(t *testing.T) *Server {
	t.Helper()
	logger := zap.NewNop()
	obManager := orderbook.New(&orderbook.Config{Logger: logger, MessageChannel: make(chan *orderbook.RawUpdate)})
	return New(&Config{
		Port:             "0",
		Logger:           logger,
		HealthChecker:    healthprobe.New(),
		OrderbookManager: obManager,
		Mappings:         testMappingRegistry(),
	})
}

func TestOrderbookHandler_MarketNotFound(t *testing.T) {
	server := newOrderbookTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/orderbook?market_id_a=unknown-market", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Market not found status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if errResp.Error == "" {
		t.Error("Error response missing error message")
	}
}

func TestOrderbookHandler_MissingMarketID(t *testing.T) {
	server := newOrderbookTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/orderbook", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Missing market_id_a status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestOrderbookHandler_MethodNotAllowed(t *testing.T) {
	server := newOrderbookTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/orderbook?market_id_a=market-a-1", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Method not allowed status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestOrderbookHandler_ReturnsBooksForMappedMarket(t *testing.T) {
	logger := zap.NewNop()
	updates := make(chan *orderbook.RawUpdate, 4)
	obManager := orderbook.New(&orderbook.Config{Logger: logger, MessageChannel: updates})
	if err := obManager.Start(context.Background()); err != nil {
		t.Fatalf("start orderbook manager: %v", err)
	}
	defer obManager.Close()

	updates <- &orderbook.RawUpdate{
		Venue: types.VenueA, AssetID: "yes-a", Outcome: types.OutcomeYes,
		UpdateTimestampMs: time.Now().UnixMilli(),
		Bids:              []types.PriceSize{{Price: 0.4, Size: 10}},
		Asks:              []types.PriceSize{{Price: 0.42, Size: 10}},
	}
	close(updates)
	time.Sleep(20 * time.Millisecond)

	server := New(&Config{
		Port:             "0",
		Logger:           logger,
		HealthChecker:    healthprobe.New(),
		OrderbookManager: obManager,
		Mappings:         testMappingRegistry(),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/orderbook?market_id_a=market-a-1", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var out OrderbookResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Books) != 1 {
		t.Fatalf("expected 1 populated book, got %d", len(out.Books))
	}
	if out.Books[0].TokenID != "yes-a" {
		t.Errorf("token id = %s, want yes-a", out.Books[0].TokenID)
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New()})

	serverDone := make(chan error, 1)
	go func() { serverDone <- server.Start() }()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	select {
	case err := <-serverDone:
		if err != nil {
			t.Errorf("Start() returned error after shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after shutdown")
	}
}

func TestServer_RouteNotFound(t *testing.T) {
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New()})

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Non-existent route status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestOrderbookEndpoint_OnlyWithComponents(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name             string
		includeOrderbook bool
		includeMappings  bool
		expectEndpoint   bool
	}{
		{name: "both_components_provided", includeOrderbook: true, includeMappings: true, expectEndpoint: true},
		{name: "missing_orderbook", includeOrderbook: false, includeMappings: true, expectEndpoint: false},
		{name: "missing_mappings", includeOrderbook: true, includeMappings: false, expectEndpoint: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Port: "0", Logger: logger, HealthChecker: healthprobe.New()}
			if tt.includeOrderbook {
				cfg.OrderbookManager = orderbook.New(&orderbook.Config{Logger: logger, MessageChannel: make(chan *orderbook.RawUpdate)})
			}
			if tt.includeMappings {
				cfg.Mappings = testMappingRegistry()
			}

			server := New(cfg)

			req := httptest.NewRequest(http.MethodGet, "/api/orderbook?market_id_a=market-a-1", nil)
			w := httptest.NewRecorder()
			server.server.Handler.ServeHTTP(w, req)

			resp := w.Result()
			defer resp.Body.Close()

			if !tt.expectEndpoint && resp.StatusCode != http.StatusNotFound {
				t.Errorf("expected route-not-found status %d, got %d", http.StatusNotFound, resp.StatusCode)
			}
		})
	}
}
