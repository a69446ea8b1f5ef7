package execution

import (
	"context"
	"time"

	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

// OrderWatcher fans in the three latency channels of spec §4.3 for a single
// order: venue WS, on-chain event WS (Venue-A only), and REST poll. The
// first channel to report a terminal status wins; the others are abandoned
// but never blocked, since each produces into its own buffered channel.
type OrderWatcher struct {
	tracker *FillTracker
	logger  *zap.Logger
}

// NewOrderWatcher builds a watcher backed by a REST-poll fallback tracker.
func NewOrderWatcher(tracker *FillTracker, logger *zap.Logger) *OrderWatcher {
	return &OrderWatcher{tracker: tracker, logger: logger}
}

// WaitForFinal blocks until orderID reaches a terminal OrderStatus, as
// reported by whichever of the three channels observes it first. wsEvents
// and onchainEvents are per-order channels the caller demultiplexes from the
// shared listener fan-out before calling (spec §5: listeners must not
// block); either may be nil if the channel doesn't apply to this order's
// venue.
func (w *OrderWatcher) WaitForFinal(
	ctx context.Context,
	orderID string,
	wsEvents <-chan *types.OpenOrder,
	onchainEvents <-chan *types.OpenOrder,
	timeout time.Duration,
) (*types.OpenOrder, error) {
	pollCtx, cancelPoll := context.WithCancel(ctx)
	defer cancelPoll()

	merged := make(chan *types.OpenOrder, 8)
	merged, restResult := w.startPoller(pollCtx, orderID, merged)

	start := time.Now()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, errTimeout(orderID, timeout)
		case order := <-wsEvents:
			if order != nil && order.OrderID == orderID {
				FillLatencySeconds.WithLabelValues("venue_ws").Observe(time.Since(start).Seconds())
				if order.Status.IsTerminal() {
					return order, nil
				}
			}
		case order := <-onchainEvents:
			if order != nil && order.OrderID == orderID {
				FillLatencySeconds.WithLabelValues("onchain_ws").Observe(time.Since(start).Seconds())
				if order.Status.IsTerminal() {
					return order, nil
				}
			}
		case order := <-merged:
			if order != nil && order.Status.IsTerminal() {
				FillLatencySeconds.WithLabelValues("rest_poll").Observe(time.Since(start).Seconds())
				return order, nil
			}
		case result := <-restResult:
			return result.order, result.err
		}
	}
}

type pollResult struct {
	order *types.OpenOrder
	err   error
}

func (w *OrderWatcher) startPoller(ctx context.Context, orderID string, merged chan *types.OpenOrder) (chan *types.OpenOrder, chan pollResult) {
	resultChan := make(chan pollResult, 1)
	go func() {
		order, err := w.tracker.PollUntilTerminal(ctx, orderID, merged)
		resultChan <- pollResult{order: order, err: err}
	}()
	return merged, resultChan
}

func errTimeout(orderID string, timeout time.Duration) error {
	return &types.TransportError{
		Op:  "wait-for-order-final:" + orderID + " after " + timeout.String(),
		Err: context.DeadlineExceeded,
	}
}
