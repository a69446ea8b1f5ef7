// Package execution implements the order-signing, submission, and two-leg
// hedged execution state machine (C3): the engine that turns a scheduled
// Task into signed orders on both venues and reconciles their fills.
package execution

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mselser95/polymarket-arb/internal/circuitbreaker"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

// BookSource is the subset of the order-book cache the execution engine
// reads to monitor the hedge leg's current best price.
type BookSource interface {
	GetBook(venue types.Venue, assetID string) (book *types.NormalizedOrderBook, stale bool, ok bool)
}

// MappingLookup resolves a task's MarketIDA to the cross-venue token mapping
// needed to place orders on both legs.
type MappingLookup interface {
	MappingForMarket(marketIDA string) (*types.MarketMapping, bool)
}

// OrderEventWatcher is the push-channel latency source (Venue-B user
// channel, or Venue-A's on-chain OrderFilled watcher) that WaitForFinal
// races against the REST poll. WaitForOrderFinal registers interest in a
// single orderID and returns a channel of observed updates plus a cancel
// func the caller must invoke once done watching.
type OrderEventWatcher interface {
	WaitForOrderFinal(orderID string) (<-chan *types.OpenOrder, func())
}

// TaskExecutor drives a single Task through C3's two-leg hedged state
// machine (spec §4.3): place the priced leg, monitor the hedge venue,
// hedge on fill, retry or unwind on partial hedge.
type TaskExecutor struct {
	venueAClient   VenueOrderClient
	venueBClient   VenueOrderClient
	signerA        *Signer
	signerB        *Signer
	books          BookSource
	mappings       MappingLookup
	circuitBreaker *circuitbreaker.BalanceCircuitBreaker
	logger         *zap.Logger

	// venueAWatcher/venueBWatcher are optional push-channel latency sources
	// (spec §4.3 channels 1/2); nil means that venue falls back to REST-poll
	// only.
	venueAWatcher OrderEventWatcher
	venueBWatcher OrderEventWatcher

	pollInitial time.Duration
	pollMax     time.Duration
	pollMult    float64

	seq atomic.Int64
}

// Config holds TaskExecutor construction parameters.
type Config struct {
	VenueAClient   VenueOrderClient
	VenueBClient   VenueOrderClient
	SignerA        *Signer
	SignerB        *Signer
	Books          BookSource
	Mappings       MappingLookup
	CircuitBreaker *circuitbreaker.BalanceCircuitBreaker
	Logger         *zap.Logger
	PollInitial    time.Duration
	PollMax        time.Duration
	PollMult       float64
	VenueAWatcher  OrderEventWatcher
	VenueBWatcher  OrderEventWatcher
}

// New constructs a TaskExecutor.
func New(cfg *Config) *TaskExecutor {
	pollInitial, pollMax, pollMult := cfg.PollInitial, cfg.PollMax, cfg.PollMult
	if pollInitial <= 0 {
		pollInitial = 100 * time.Millisecond
	}
	if pollMax <= 0 {
		pollMax = 500 * time.Millisecond
	}
	if pollMult <= 0 {
		pollMult = 1.5
	}
	return &TaskExecutor{
		venueAClient:   cfg.VenueAClient,
		venueBClient:   cfg.VenueBClient,
		signerA:        cfg.SignerA,
		signerB:        cfg.SignerB,
		books:          cfg.Books,
		mappings:       cfg.Mappings,
		circuitBreaker: cfg.CircuitBreaker,
		logger:         cfg.Logger,
		pollInitial:    pollInitial,
		pollMax:        pollMax,
		pollMult:       pollMult,
		venueAWatcher:  cfg.VenueAWatcher,
		venueBWatcher:  cfg.VenueBWatcher,
	}
}

// EmitFunc appends a TaskEvent to a task's durable log (owned by the C5
// scheduler); the executor only produces events, never persists them.
type EmitFunc func(types.TaskEvent)

// Execute drives task through the hedged state machine until it reaches a
// terminal TaskStatus, calling emit for every state transition.
func (e *TaskExecutor) Execute(ctx context.Context, task *types.Task, emit EmitFunc) error {
	if err := task.Params.Validate(task.Kind, task.Strategy); err != nil {
		e.fail(emit, task, err)
		return err
	}

	if e.circuitBreaker != nil && !e.circuitBreaker.IsEnabled() {
		return fmt.Errorf("%w: circuit breaker disabled", types.ErrMarketBusy)
	}

	mapping, ok := e.mappings.MappingForMarket(task.MarketIDA)
	if !ok {
		err := fmt.Errorf("no market mapping for %s", task.MarketIDA)
		e.fail(emit, task, err)
		return err
	}

	task.Status = types.TaskRunning
	start := time.Now()
	TasksStartedTotal.WithLabelValues(string(task.Kind), string(task.Strategy)).Inc()

	var err error
	switch task.Kind {
	case types.TaskBuy:
		err = e.runBuy(ctx, task, mapping, emit)
	case types.TaskSell:
		err = e.runSell(ctx, task, mapping, emit)
	default:
		err = fmt.Errorf("unknown task kind %q", task.Kind)
	}

	TaskDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		e.fail(emit, task, err)
		return err
	}

	task.Status = types.TaskCompleted
	task.CompletedAt = time.Now()
	TasksCompletedTotal.WithLabelValues(string(task.Kind), string(task.Status)).Inc()
	RealizedPnLUSD.Add(task.Counters.RealizedPnL)
	e.emit(emit, task, types.EventTaskComplete, types.PriorityInfo, "", map[string]any{"realized-pnl": task.Counters.RealizedPnL})
	return nil
}

// runBuy implements spec §4.3's BUY two-leg state machine: a priced leg on
// Venue-A hedged by a marketable IOC on Venue-B.
func (e *TaskExecutor) runBuy(ctx context.Context, task *types.Task, mapping *types.MarketMapping, emit EmitFunc) error {
	aTokenID := mapping.TokenForOutcome(types.VenueA, task.ArbSide)
	bOutcome := mapping.ResolveOutcomeB(task.ArbSide)
	bTokenID := mapping.TokenForOutcome(types.VenueB, bOutcome)

	remaining := task.Quantity
	for remaining > minResidual {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		price := task.Params.PredictPrice
		tif := types.TIFGTC
		if task.Strategy == types.StrategyTaker {
			price = task.Params.PredictAskPrice
			tif = types.TIFIOC
		}

		leg, err := e.placeLeg(ctx, task, e.venueAClient, e.signerA, types.VenueA, aTokenID, types.SideBuy, price, remaining, mapping.TickSize, tif, mapping.NegRisk, emit)
		if err != nil {
			return fmt.Errorf("place venue-a leg: %w", err)
		}

		if !e.withinHedgeBand(task, mapping, bTokenID) {
			task.Counters.PauseCount++
			PausesTotal.Inc()
			e.emit(emit, task, types.EventPause, types.PriorityWarning, leg.OrderID, nil)
			if err := e.cancelAndWait(ctx, e.venueAClient, leg.OrderID); err != nil {
				e.logger.Warn("cancel-on-pause-failed", zap.String("order-id", leg.OrderID), zap.Error(err))
			}
			e.emit(emit, task, types.EventResume, types.PriorityInfo, leg.OrderID, nil)
			continue
		}

		filled, err := e.waitFilled(ctx, e.venueAClient, leg.OrderID, task.OrderTimeout)
		if err != nil {
			return fmt.Errorf("await venue-a fill: %w", err)
		}
		if filled.FilledSize <= 0 {
			continue
		}

		task.Counters.FilledQty += filled.FilledSize
		task.Counters.AvgFillPrice = weightedAvg(task.Counters.AvgFillPrice, task.Counters.FilledQty-filled.FilledSize, filled.Price, filled.FilledSize)
		e.emit(emit, task, types.EventOrderFilled, types.PriorityInfo, leg.OrderID, map[string]any{"filled": filled.FilledSize})

		if err := e.hedgeLeg(ctx, task, mapping, bTokenID, bOutcome, filled.FilledSize, emit); err != nil {
			return fmt.Errorf("hedge leg: %w", err)
		}

		remaining -= filled.FilledSize
	}

	return nil
}

// runSell implements the symmetric close-position state machine: a priced
// sell on one venue hedged by a marketable sell on the other.
func (e *TaskExecutor) runSell(ctx context.Context, task *types.Task, mapping *types.MarketMapping, emit EmitFunc) error {
	aTokenID := mapping.TokenForOutcome(types.VenueA, task.ArbSide)
	bOutcome := mapping.ResolveOutcomeB(task.ArbSide)
	bTokenID := mapping.TokenForOutcome(types.VenueB, bOutcome)

	price := task.Params.PredictAskPrice
	tif := types.TIFGTC
	if task.Strategy == types.StrategyTaker {
		price = task.Params.PredictPrice
		tif = types.TIFIOC
	}

	leg, err := e.placeLeg(ctx, task, e.venueAClient, e.signerA, types.VenueA, aTokenID, types.SideSell, price, task.Quantity, mapping.TickSize, tif, mapping.NegRisk, emit)
	if err != nil {
		return fmt.Errorf("place venue-a close leg: %w", err)
	}

	filled, err := e.waitFilled(ctx, e.venueAClient, leg.OrderID, task.OrderTimeout)
	if err != nil {
		return fmt.Errorf("await venue-a close fill: %w", err)
	}
	if filled.FilledSize <= 0 {
		return nil
	}

	task.Counters.FilledQty += filled.FilledSize
	e.emit(emit, task, types.EventOrderFilled, types.PriorityInfo, leg.OrderID, map[string]any{"filled": filled.FilledSize})

	book, stale, ok := e.books.GetBook(types.VenueB, bTokenID)
	if !ok || stale {
		return fmt.Errorf("venue-b book unavailable for close hedge")
	}
	bidPrice, _, hasBid := book.BestBid()
	if !hasBid || bidPrice < task.Params.PolymarketMinBid {
		bidPrice = task.Params.PolymarketMinBid
	}

	hedgeLeg, err := e.placeLeg(ctx, task, e.venueBClient, e.signerB, types.VenueB, bTokenID, types.SideSell, bidPrice, filled.FilledSize, mapping.TickSize, types.TIFIOC, mapping.NegRisk, emit)
	if err != nil {
		return fmt.Errorf("place venue-b close hedge: %w", err)
	}
	hedgeFilled, err := e.waitFilled(ctx, e.venueBClient, hedgeLeg.OrderID, task.OrderTimeout)
	if err != nil {
		return fmt.Errorf("await venue-b close hedge fill: %w", err)
	}

	task.Counters.HedgedQty += hedgeFilled.FilledSize
	task.Counters.RealizedPnL += (filled.Price+hedgeFilled.Price)*hedgeFilled.FilledSize - task.Params.EntryCost*hedgeFilled.FilledSize
	e.emit(emit, task, types.EventHedgeComplete, types.PriorityInfo, hedgeLeg.OrderID, map[string]any{"hedged": hedgeFilled.FilledSize})
	return nil
}

// hedgeLeg fires the Venue-B IOC hedge for a Venue-A fill, retrying with
// refreshed books up to MaxHedgeRetries before unwinding the residual.
func (e *TaskExecutor) hedgeLeg(ctx context.Context, task *types.Task, mapping *types.MarketMapping, tokenID string, outcome types.Outcome, qty float64, emit EmitFunc) error {
	remaining := qty
	for attempt := 0; attempt <= task.MaxHedgeRetries && remaining > minResidual; attempt++ {
		if attempt > 0 {
			task.Counters.HedgeRetryCount++
			HedgeRetriesTotal.Inc()
		}

		book, stale, ok := e.books.GetBook(types.VenueB, tokenID)
		if !ok || stale {
			continue
		}
		askPrice, _, hasAsk := book.BestAsk()
		if !hasAsk {
			continue
		}
		if askPrice > task.Params.PolymarketMaxAsk {
			askPrice = task.Params.PolymarketMaxAsk
		}

		e.emit(emit, task, types.EventHedgeAttempt, types.PriorityInfo, "", map[string]any{"attempt": attempt, "qty": remaining})

		leg, err := e.placeLeg(ctx, task, e.venueBClient, e.signerB, types.VenueB, tokenID, types.SideBuy, askPrice, remaining, mapping.TickSize, types.TIFIOC, mapping.NegRisk, emit)
		if err != nil {
			return err
		}
		filled, err := e.waitFilled(ctx, e.venueBClient, leg.OrderID, task.OrderTimeout)
		if err != nil {
			return err
		}

		task.Counters.HedgedQty += filled.FilledSize
		task.Counters.AvgHedgePrice = weightedAvg(task.Counters.AvgHedgePrice, task.Counters.HedgedQty-filled.FilledSize, filled.Price, filled.FilledSize)
		remaining -= filled.FilledSize
	}

	if remaining > minResidual {
		return e.unwind(ctx, task, mapping, remaining, emit)
	}
	e.emit(emit, task, types.EventHedgeComplete, types.PriorityInfo, "", map[string]any{"hedged": qty - remaining})
	return nil
}

// unwind sells the residual Venue-A position back at the market bid,
// recording unwindLoss = (entryCost - salvagedProceeds) * shortfall.
func (e *TaskExecutor) unwind(ctx context.Context, task *types.Task, mapping *types.MarketMapping, shortfall float64, emit EmitFunc) error {
	UnwindsTotal.Inc()
	e.emit(emit, task, types.EventUnwindStart, types.PriorityWarning, "", map[string]any{"shortfall": shortfall})

	tokenID := mapping.TokenForOutcome(types.VenueA, task.ArbSide)
	book, stale, ok := e.books.GetBook(types.VenueA, tokenID)
	bidPrice := 0.0
	if ok && !stale {
		bidPrice, _, _ = book.BestBid()
	}

	leg, err := e.placeLeg(ctx, task, e.venueAClient, e.signerA, types.VenueA, tokenID, types.SideSell, bidPrice, shortfall, mapping.TickSize, types.TIFIOC, mapping.NegRisk, emit)
	if err != nil {
		return fmt.Errorf("unwind order: %w", err)
	}
	filled, err := e.waitFilled(ctx, e.venueAClient, leg.OrderID, task.OrderTimeout)
	if err != nil {
		return fmt.Errorf("await unwind fill: %w", err)
	}

	entryCost := task.Params.PredictPrice * shortfall
	salvaged := filled.Price * filled.FilledSize
	loss := entryCost - salvaged
	task.Counters.RealizedPnL -= loss
	UnwindLossUSD.Add(loss)
	return nil
}

// withinHedgeBand reports whether the opposite venue's current best ask is
// still inside polymarketMaxAsk; if not, the task must pause (spec §4.3
// step 2).
func (e *TaskExecutor) withinHedgeBand(task *types.Task, mapping *types.MarketMapping, hedgeTokenID string) bool {
	book, stale, ok := e.books.GetBook(types.VenueB, hedgeTokenID)
	if !ok || stale {
		return false
	}
	askPrice, _, hasAsk := book.BestAsk()
	if !hasAsk {
		return false
	}
	return askPrice <= task.Params.PolymarketMaxAsk
}

func (e *TaskExecutor) placeLeg(
	ctx context.Context,
	task *types.Task,
	client VenueOrderClient,
	signer *Signer,
	venue types.Venue,
	tokenID string,
	side types.Side,
	price, qty, tickSize float64,
	tif types.TimeInForce,
	negRisk bool,
	emit EmitFunc,
) (*types.OpenOrder, error) {
	env, err := signer.Sign(OrderSpec{
		TokenID:     tokenID,
		Side:        side,
		Price:       price,
		Shares:      qty,
		TickSize:    tickSize,
		FeeRateBps:  task.FeeRateBps,
		TimeInForce: tif,
		NegRisk:     negRisk,
	})
	if err != nil {
		return nil, err
	}

	order, err := client.PlaceOrder(ctx, env)
	if err != nil {
		return nil, err
	}
	OrdersPlacedTotal.WithLabelValues(string(venue), string(side)).Inc()
	e.emit(emit, task, types.EventOrderSubmitted, types.PriorityInfo, order.OrderID, map[string]any{"venue": string(venue), "price": price, "qty": qty})
	return order, nil
}

func (e *TaskExecutor) waitFilled(ctx context.Context, client VenueOrderClient, orderID string, timeout time.Duration) (*types.OpenOrder, error) {
	tracker := NewFillTracker(client, e.logger, &FillTrackerConfig{
		InitialBackoff: e.pollInitial,
		MaxBackoff:     e.pollMax,
		BackoffMult:    e.pollMult,
		PollTimeout:    timeout,
	})
	watcher := NewOrderWatcher(tracker, e.logger)

	// Venue-B's push watcher is a real order/trade websocket; Venue-A's is
	// the on-chain OrderFilled subscription (internal/venueA.OnChainWatcher)
	// since Venue-A exposes no equivalent user channel. They land in
	// separate FillLatencySeconds buckets ("venue_ws" vs "onchain_ws").
	var wsEvents, onchainEvents <-chan *types.OpenOrder
	switch client {
	case e.venueAClient:
		if e.venueAWatcher != nil {
			ch, cancel := e.venueAWatcher.WaitForOrderFinal(orderID)
			defer cancel()
			onchainEvents = ch
		}
	case e.venueBClient:
		if e.venueBWatcher != nil {
			ch, cancel := e.venueBWatcher.WaitForOrderFinal(orderID)
			defer cancel()
			wsEvents = ch
		}
	}

	return watcher.WaitForFinal(ctx, orderID, wsEvents, onchainEvents, timeout)
}

func (e *TaskExecutor) cancelAndWait(ctx context.Context, client VenueOrderClient, orderID string) error {
	return client.CancelOrder(ctx, orderID)
}

func (e *TaskExecutor) fail(emit EmitFunc, task *types.Task, err error) {
	task.Status = types.TaskFailed
	task.FailureReason = err.Error()
	task.CompletedAt = time.Now()
	TasksCompletedTotal.WithLabelValues(string(task.Kind), string(task.Status)).Inc()
	e.emit(emit, task, types.EventTaskFailed, types.PriorityCritical, "", map[string]any{"error": err.Error()})
}

func (e *TaskExecutor) emit(emit EmitFunc, task *types.Task, kind types.TaskEventKind, priority types.EventPriority, orderID string, payload map[string]any) {
	if emit == nil {
		return
	}
	emit(types.TaskEvent{
		TaskID:     task.ID,
		Sequence:   e.seq.Add(1),
		OccurredAt: time.Now(),
		Kind:       kind,
		Priority:   priority,
		OrderID:    orderID,
		Payload:    payload,
	})
}

func weightedAvg(prevAvg, prevQty, newPrice, newQty float64) float64 {
	total := prevQty + newQty
	if total <= 0 {
		return prevAvg
	}
	return (prevAvg*prevQty + newPrice*newQty) / total
}

const minResidual = 0.01
