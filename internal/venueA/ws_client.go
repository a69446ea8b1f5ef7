package venueA

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/orderbook"
	"github.com/mselser95/polymarket-arb/pkg/types"
	pmws "github.com/mselser95/polymarket-arb/pkg/websocket"
)

// MarketClient is Venue-A's push-WS client (spec §4.1/§6): it subscribes to
// per-market order-book topics and the wallet-events topic, and publishes
// RawUpdates into the shared C2 cache. Structurally this mirrors
// pkg/websocket.Manager's connect/read/ping/reconnect loop; the wire
// protocol differs (subscribe envelope, heartbeat echo instead of PING/PONG
// control frames).
type MarketClient struct {
	url    string
	jwt    func() (string, error) // lazily fetches/refreshes the auth token for the wallet topic.
	logger *zap.Logger
	config MarketClientConfig

	conn         *websocket.Conn
	reconnectMgr *pmws.ReconnectManager
	updateChan   chan<- orderbook.RawUpdate

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	requestID atomic.Int64
	connected atomic.Bool
}

// MarketClientConfig configures a MarketClient.
type MarketClientConfig struct {
	URL                   string
	JWT                   func() (string, error)
	DialTimeout           time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	Logger                *zap.Logger
}

// NewMarketClient constructs a MarketClient publishing RawUpdates into out.
func NewMarketClient(cfg MarketClientConfig, out chan<- orderbook.RawUpdate) *MarketClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &MarketClient{
		url:          cfg.URL,
		jwt:          cfg.JWT,
		logger:       cfg.Logger,
		config:       cfg,
		updateChan:   out,
		reconnectMgr: pmws.NewReconnectManager(pmws.ReconnectConfig{
			InitialDelay:      cfg.ReconnectInitialDelay,
			MaxDelay:          cfg.ReconnectMaxDelay,
			BackoffMultiplier: cfg.ReconnectBackoffMult,
			JitterPercent:     0.2,
		}, cfg.Logger),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start dials and begins reading; it does not block.
func (c *MarketClient) Start() error {
	if err := c.connect(c.ctx); err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}
	c.wg.Add(2)
	go c.readLoop()
	go c.reconnectLoop()
	return nil
}

func (c *MarketClient) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	c.conn = conn
	c.connected.Store(true)
	MarketClientConnected.Set(1)
	c.logger.Info("venuea-ws-connected")
	return nil
}

// Subscribe subscribes to per-market order-book topics and (once) the
// wallet-events topic gated by the current JWT.
func (c *MarketClient) Subscribe(marketIDs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	params := make([]string, 0, len(marketIDs)+1)
	for _, m := range marketIDs {
		params = append(params, "book/"+m)
	}
	if c.jwt != nil {
		token, err := c.jwt()
		if err == nil && token != "" {
			params = append(params, "predictWalletEvents/"+token)
		}
	}

	msg := map[string]interface{}{
		"method":    "subscribe",
		"requestId": c.requestID.Add(1),
		"params":    params,
	}
	return c.conn.WriteJSON(msg)
}

// wireMessage captures the two frame shapes Venue-A's push WS sends: a
// heartbeat control frame, or an order-book update frame.
type wireMessage struct {
	Type    string          `json:"type"`
	Topic   string          `json:"topic"`
	Data    json.RawMessage `json:"data"`
	Market  string          `json:"market"`
	AssetID string          `json:"assetId"`
	Bids    []types.PriceLevel `json:"bids"`
	Asks    []types.PriceLevel `json:"asks"`
}

func (c *MarketClient) readLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}
		if c.conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, message, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.Warn("venuea-ws-read-error", zap.Error(err))
			c.connected.Store(false)
			MarketClientConnected.Set(0)
			return
		}

		var frame wireMessage
		if err := json.Unmarshal(message, &frame); err != nil {
			c.logger.Debug("venuea-ws-unparseable-message", zap.Error(err))
			continue
		}

		if frame.Type == "M" && frame.Topic == "heartbeat" {
			c.respondHeartbeat(frame.Data)
			continue
		}

		c.publishBook(&frame)
	}
}

func (c *MarketClient) respondHeartbeat(echo json.RawMessage) {
	msg := map[string]interface{}{"method": "heartbeat", "data": echo}
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Warn("venuea-heartbeat-echo-failed", zap.Error(err))
	}
}

func (c *MarketClient) publishBook(frame *wireMessage) {
	if frame.AssetID == "" {
		return
	}

	toPriceSize := func(levels []types.PriceLevel) []types.PriceSize {
		out := make([]types.PriceSize, 0, len(levels))
		for _, lvl := range levels {
			var price, size float64
			fmt.Sscanf(lvl.Price, "%g", &price)
			fmt.Sscanf(lvl.Size, "%g", &size)
			out = append(out, types.PriceSize{Price: price, Size: size})
		}
		return out
	}

	update := orderbook.RawUpdate{
		Venue:             types.VenueA,
		MarketID:          frame.Market,
		AssetID:           frame.AssetID,
		UpdateTimestampMs: time.Now().UnixMilli(),
		Bids:              toPriceSize(frame.Bids),
		Asks:              toPriceSize(frame.Asks),
	}

	MarketMessagesReceivedTotal.Inc()
	select {
	case c.updateChan <- update:
	default:
		MarketMessagesDroppedTotal.Inc()
	}
}

func (c *MarketClient) reconnectLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}
		if c.connected.Load() {
			time.Sleep(time.Second)
			continue
		}
		if err := c.reconnectMgr.Reconnect(c.ctx, c.connect); err != nil {
			if err == context.Canceled {
				return
			}
			continue
		}
		c.wg.Add(1)
		go c.readLoop()
	}
}

// Close tears down the connection and stops all loops.
func (c *MarketClient) Close() error {
	c.cancel()
	if c.conn != nil {
		c.conn.Close()
	}
	c.wg.Wait()
	MarketClientConnected.Set(0)
	return nil
}
