package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

// FillTracker verifies order fills by REST polling with exponential backoff.
// This is latency channel 3 of C3's three parallel order watchers (spec
// §4.3): the slowest, but always correct, since REST is the source of truth.
type FillTracker struct {
	client         VenueOrderClient
	logger         *zap.Logger
	initialBackoff time.Duration
	maxBackoff     time.Duration
	backoffMult    float64
	pollTimeout    time.Duration
}

// FillTrackerConfig holds configuration for fill verification.
type FillTrackerConfig struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffMult    float64
	PollTimeout    time.Duration
}

// NewFillTracker creates a FillTracker polling orders via client.
func NewFillTracker(client VenueOrderClient, logger *zap.Logger, cfg *FillTrackerConfig) *FillTracker {
	return &FillTracker{
		client:         client,
		logger:         logger,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		backoffMult:    cfg.BackoffMult,
		pollTimeout:    cfg.PollTimeout,
	}
}

// PollUntilTerminal polls GetOrderStatus every backoff interval (100-500ms
// per spec §4.3) until the order reaches a terminal status or the timeout
// elapses, pushing each observed state onto out.
func (ft *FillTracker) PollUntilTerminal(ctx context.Context, orderID string, out chan<- *types.OpenOrder) (*types.OpenOrder, error) {
	deadline := time.NewTimer(ft.pollTimeout)
	defer deadline.Stop()

	backoff := ft.initialBackoff
	var last *types.OpenOrder

	for {
		order, err := ft.client.GetOrderStatus(ctx, orderID)
		if err != nil {
			ft.logger.Warn("order-status-poll-failed", zap.String("order-id", orderID), zap.Error(err))
		} else {
			last = order
			if out != nil {
				select {
				case out <- order:
				default:
				}
			}
			if order.Status.IsTerminal() {
				return order, nil
			}
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-deadline.C:
			if last == nil {
				return nil, fmt.Errorf("poll timeout waiting for order %s", orderID)
			}
			return last, fmt.Errorf("poll timeout: order %s still %s after %s", orderID, last.Status, ft.pollTimeout)
		case <-time.After(backoff):
			backoff = time.Duration(float64(backoff) * ft.backoffMult)
			if backoff > ft.maxBackoff {
				backoff = ft.maxBackoff
			}
		}
	}
}
