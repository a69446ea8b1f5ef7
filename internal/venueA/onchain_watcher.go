// Package venueA holds Venue-A-specific pieces that have no Venue-B
// analogue in the teacher: JWT-signed-message auth lives alongside the
// order REST client in internal/execution, but the on-chain settlement
// watcher below is unique to an EVM-settled, non-Polymarket venue.
package venueA

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	arbtypes "github.com/mselser95/polymarket-arb/pkg/types"
)

// orderFilledTopic is keccak256("OrderFilled(bytes32,address,address,address,uint256,uint256,uint256,uint256)"),
// per spec §6.
var orderFilledTopic = common.HexToHash("0xd0a08e8c493f9c94f29311604c9de1b4e8c8d4c06bd0c789af57f2d65bfec0f6")

// OnChainWatcher subscribes to the OrderFilled event across Venue-A's four
// exchange contracts (standard CTF, negRisk CTF, yield-bearing, yield-bearing
// negRisk) and fans matching fills out to registered per-orderHash waiters.
// This is C3's second latency channel (spec §4.3).
type OnChainWatcher struct {
	rpcURLs     []string
	contracts   []common.Address
	self        common.Address
	logger      *zap.Logger
	client      *ethclient.Client
	sub         ethereum.Subscription
	logs        chan types.Log
	cancel      context.CancelFunc

	mu      sync.Mutex
	waiters map[string]chan *arbtypes.OpenOrder
	recent  map[string]recentFill
}

// recentFill is a fill log observed for an orderHash before any watcher had
// registered for it, cached briefly so WaitForOrderFinal can replay it
// instead of blocking forever on an event that already happened (spec
// §4.3's fast-fill race).
type recentFill struct {
	order *arbtypes.OpenOrder
	at    time.Time
}

const recentFillTTL = 60 * time.Second

// Config holds construction parameters for OnChainWatcher.
type Config struct {
	RPCURLs           []string // BSC_WSS_URLS, tried in order until one dials.
	ExchangeContracts []string // hex addresses of the four exchange contracts.
	SelfAddress       string
	Logger            *zap.Logger
}

// New constructs an OnChainWatcher. Dialing happens in Start.
func New(cfg Config) *OnChainWatcher {
	contracts := make([]common.Address, 0, len(cfg.ExchangeContracts))
	for _, c := range cfg.ExchangeContracts {
		contracts = append(contracts, common.HexToAddress(c))
	}
	return &OnChainWatcher{
		rpcURLs:   cfg.RPCURLs,
		contracts: contracts,
		self:      common.HexToAddress(cfg.SelfAddress),
		logger:    cfg.Logger,
		waiters:   make(map[string]chan *arbtypes.OpenOrder),
		recent:    make(map[string]recentFill),
	}
}

// Start dials the first reachable RPC endpoint and subscribes to OrderFilled
// logs across all four exchange contracts.
func (w *OnChainWatcher) Start(ctx context.Context) error {
	var lastErr error
	for _, url := range w.rpcURLs {
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			lastErr = err
			w.logger.Warn("onchain-dial-failed", zap.String("url", url), zap.Error(err))
			continue
		}
		w.client = client
		break
	}
	if w.client == nil {
		return fmt.Errorf("dial any on-chain RPC endpoint: %w", lastErr)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	query := ethereum.FilterQuery{
		Addresses: w.contracts,
		Topics:    [][]common.Hash{{orderFilledTopic}},
	}

	logs := make(chan types.Log, 256)
	sub, err := w.client.SubscribeFilterLogs(watchCtx, query, logs)
	if err != nil {
		return fmt.Errorf("subscribe order-filled logs: %w", err)
	}
	w.sub = sub
	w.logs = logs

	go w.readLoop(watchCtx)
	return nil
}

// WaitForOrderFinal registers a waiter for orderHash's on-chain fill,
// implementing execution.OrderEventWatcher. If the fill log already arrived
// before this call registered, it is replayed immediately from the
// recent-fill cache instead of being lost.
func (w *OnChainWatcher) WaitForOrderFinal(orderHash string) (<-chan *arbtypes.OpenOrder, func()) {
	key := strings.ToLower(orderHash)
	ch := make(chan *arbtypes.OpenOrder, 2)

	w.mu.Lock()
	if cached, ok := w.recent[key]; ok && time.Since(cached.at) < recentFillTTL {
		delete(w.recent, key)
		ch <- cached.order
	}
	w.waiters[key] = ch
	w.mu.Unlock()

	return ch, func() {
		w.mu.Lock()
		if existing, ok := w.waiters[key]; ok && existing == ch {
			delete(w.waiters, key)
		}
		w.mu.Unlock()
	}
}

func (w *OnChainWatcher) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.sub.Err():
			if err != nil {
				w.logger.Error("onchain-subscription-error", zap.Error(err))
				OnChainSubscriptionErrorsTotal.Inc()
			}
			return
		case log := <-w.logs:
			w.handleLog(log)
		}
	}
}

// handleLog decodes a raw OrderFilled log and, if it involves our own
// address as maker or taker, dispatches a terminal fill update to the
// waiter registered for that orderHash.
func (w *OnChainWatcher) handleLog(log types.Log) {
	if len(log.Topics) < 4 {
		return
	}
	orderHash := log.Topics[1]
	maker := common.BytesToAddress(log.Topics[2].Bytes())
	taker := common.BytesToAddress(log.Topics[3].Bytes())

	if maker != w.self && taker != w.self {
		return
	}

	OnChainFillsObservedTotal.Inc()

	makerAmount, takerAmount := decodeFillAmounts(log.Data)
	order := &arbtypes.OpenOrder{
		Venue:      arbtypes.VenueA,
		OrderID:    orderHash.Hex(),
		Status:     arbtypes.OrderFilled,
		FilledSize: amountToShares(takerAmount, makerAmount),
	}

	key := strings.ToLower(orderHash.Hex())
	now := time.Now()

	w.mu.Lock()
	ch, ok := w.waiters[key]
	if !ok {
		w.recent[key] = recentFill{order: order, at: now}
	}
	for id, ev := range w.recent {
		if now.Sub(ev.at) > recentFillTTL {
			delete(w.recent, id)
		}
	}
	w.mu.Unlock()

	if !ok {
		return
	}
	select {
	case ch <- order:
	default:
		OnChainFillsDroppedTotal.Inc()
	}
}

// decodeFillAmounts extracts the non-indexed makerAmountFilled/takerAmountFilled
// uint256 fields from an OrderFilled log's data, the first two 32-byte words.
func decodeFillAmounts(data []byte) (makerAmount, takerAmount *big.Int) {
	makerAmount = new(big.Int)
	takerAmount = new(big.Int)
	if len(data) >= 32 {
		makerAmount.SetBytes(data[0:32])
	}
	if len(data) >= 64 {
		takerAmount.SetBytes(data[32:64])
	}
	return makerAmount, takerAmount
}

// amountToShares is a conservative placeholder converting raw 18-decimal
// units to shares; callers reconcile the authoritative size via the REST
// poll channel, so this only needs to signal "a fill happened."
func amountToShares(takerAmount, makerAmount *big.Int) float64 {
	if takerAmount.Sign() == 0 {
		return 0
	}
	scaled := new(big.Float).Quo(new(big.Float).SetInt(takerAmount), big.NewFloat(1e18))
	f, _ := scaled.Float64()
	return f
}

// Close unsubscribes and tears down the RPC connection.
func (w *OnChainWatcher) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.sub != nil {
		w.sub.Unsubscribe()
	}
	if w.client != nil {
		w.client.Close()
	}
}
