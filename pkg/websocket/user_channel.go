package websocket

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// UserChannelManager subscribes to Venue-B's HMAC-gated user channel (spec
// §4.3 channel 1) and fans incoming order/trade events out to whichever
// in-flight order watcher is waiting on that orderId. Structurally this is
// the market-channel Manager's connection lifecycle (dial, reconnect,
// ping/pong) narrowed to a single auth'd subscription instead of a set of
// asset ids.
type UserChannelManager struct {
	url          string
	apiKey       string
	secret       string
	passphrase   string
	conn         *websocket.Conn
	logger       *zap.Logger
	reconnectMgr *ReconnectManager
	config       UserChannelConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	waiters map[string]chan *types.OpenOrder
	recent  map[string]recentOrderEvent

	connected atomic.Bool
}

// recentOrderEvent is a terminal/near-terminal order update cached briefly
// for orders whose watcher hasn't registered yet (spec §4.3: the fast-fill
// race between order placement and WaitForOrderFinal).
type recentOrderEvent struct {
	order *types.OpenOrder
	at    time.Time
}

// recentEventTTL bounds how long a pre-registration event stays replayable.
const recentEventTTL = 60 * time.Second

// UserChannelConfig holds construction parameters for UserChannelManager.
type UserChannelConfig struct {
	URL                   string
	APIKey                string
	Secret                string
	Passphrase            string
	DialTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	Logger                *zap.Logger
}

// NewUserChannelManager constructs a UserChannelManager.
func NewUserChannelManager(cfg UserChannelConfig) *UserChannelManager {
	ctx, cancel := context.WithCancel(context.Background())

	reconnectCfg := ReconnectConfig{
		InitialDelay:      cfg.ReconnectInitialDelay,
		MaxDelay:          cfg.ReconnectMaxDelay,
		BackoffMultiplier: cfg.ReconnectBackoffMult,
		JitterPercent:     0.2,
	}

	return &UserChannelManager{
		url:          cfg.URL,
		apiKey:       cfg.APIKey,
		secret:       cfg.Secret,
		passphrase:   cfg.Passphrase,
		logger:       cfg.Logger,
		reconnectMgr: NewReconnectManager(reconnectCfg, cfg.Logger),
		config:       cfg,
		ctx:          ctx,
		cancel:       cancel,
		waiters:      make(map[string]chan *types.OpenOrder),
		recent:       make(map[string]recentOrderEvent),
	}
}

// Start dials the user channel, sends the auth'd subscribe frame, and starts
// the read/ping/reconnect loops.
func (m *UserChannelManager) Start() error {
	if err := m.connect(m.ctx); err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	m.wg.Add(3)
	go m.readLoop()
	go m.pingLoop()
	go m.reconnectLoop()

	return nil
}

func (m *UserChannelManager) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: m.config.DialTimeout}

	conn, _, err := dialer.DialContext(ctx, m.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	authMsg := map[string]interface{}{
		"type":    "USER",
		"markets": []string{},
		"auth": map[string]string{
			"apiKey":     m.apiKey,
			"secret":     m.secret,
			"passphrase": m.passphrase,
		},
	}
	if err := conn.WriteJSON(authMsg); err != nil {
		conn.Close()
		return fmt.Errorf("write auth subscribe: %w", err)
	}

	m.conn = conn
	m.connected.Store(true)
	UserChannelConnected.Set(1)
	m.logger.Info("user-channel-connected")
	return nil
}

// WaitForOrderFinal registers a waiter for orderID's events and returns a
// channel delivering every observed update (terminal or not) until the
// caller abandons it via the returned cancel func. If an event for orderID
// already arrived before this call registered (the order filled between
// submission and watcher registration), it is replayed immediately.
func (m *UserChannelManager) WaitForOrderFinal(orderID string) (<-chan *types.OpenOrder, func()) {
	ch := make(chan *types.OpenOrder, 4)

	m.mu.Lock()
	if cached, ok := m.recent[orderID]; ok && time.Since(cached.at) < recentEventTTL {
		delete(m.recent, orderID)
		ch <- cached.order
	}
	m.waiters[orderID] = ch
	m.mu.Unlock()

	return ch, func() {
		m.mu.Lock()
		if existing, ok := m.waiters[orderID]; ok && existing == ch {
			delete(m.waiters, orderID)
		}
		m.mu.Unlock()
	}
}

// dispatch delivers order to its registered waiter, or — if none has
// registered yet — caches it briefly so a WaitForOrderFinal call that
// arrives moments later still observes it.
func (m *UserChannelManager) dispatch(order *types.OpenOrder) {
	now := time.Now()

	m.mu.Lock()
	ch, ok := m.waiters[order.OrderID]
	if !ok {
		m.recent[order.OrderID] = recentOrderEvent{order: order, at: now}
	}
	for id, ev := range m.recent {
		if now.Sub(ev.at) > recentEventTTL {
			delete(m.recent, id)
		}
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	select {
	case ch <- order:
	default:
		UserChannelEventsDroppedTotal.Inc()
	}
}

func (m *UserChannelManager) readLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		if m.conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, message, err := m.conn.ReadMessage()
		if err != nil {
			m.logger.Warn("user-channel-read-error", zap.Error(err))
			m.connected.Store(false)
			UserChannelConnected.Set(0)
			return
		}

		if string(message) == "PONG" {
			continue
		}

		var orderEvt types.UserOrderEvent
		if err := json.Unmarshal(message, &orderEvt); err == nil && orderEvt.EventType == "order" {
			UserChannelEventsReceivedTotal.WithLabelValues("order").Inc()
			m.dispatch(orderEvt.ToOpenOrder())
			continue
		}

		var tradeEvt types.UserTradeEvent
		if err := json.Unmarshal(message, &tradeEvt); err == nil && tradeEvt.EventType == "trade" {
			UserChannelEventsReceivedTotal.WithLabelValues("trade").Inc()
			// A trade frame for an IOC order signals a fill occurred; the
			// REST poll channel resolves the authoritative final state, so
			// here we only nudge watchers that the order is at least LIVE.
			price, _ := parseFloatSafe(tradeEvt.Price)
			size, _ := parseFloatSafe(tradeEvt.Size)
			m.dispatch(&types.OpenOrder{
				Venue:      types.VenueB,
				OrderID:    tradeEvt.OrderID,
				Side:       types.Side(tradeEvt.Side),
				Price:      price,
				FilledSize: size,
				Status:     types.OrderLive,
			})
		}
	}
}

func (m *UserChannelManager) pingLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if !m.connected.Load() || m.conn == nil {
				continue
			}
			if err := m.conn.WriteMessage(websocket.TextMessage, []byte("PING")); err != nil {
				m.logger.Warn("user-channel-ping-error", zap.Error(err))
			}
		}
	}
}

func (m *UserChannelManager) reconnectLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		if m.connected.Load() {
			time.Sleep(time.Second)
			continue
		}

		m.logger.Warn("user-channel-connection-lost")
		if err := m.reconnectMgr.Reconnect(m.ctx, m.connect); err != nil {
			if err == context.Canceled {
				return
			}
			continue
		}

		m.wg.Add(1)
		go m.readLoop()
	}
}

// Close shuts down the user channel connection and all loops.
func (m *UserChannelManager) Close() error {
	m.cancel()
	if m.conn != nil {
		m.conn.Close()
	}
	m.wg.Wait()
	UserChannelConnected.Set(0)
	return nil
}

func parseFloatSafe(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	return f, err
}
