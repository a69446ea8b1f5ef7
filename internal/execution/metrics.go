package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksStartedTotal tracks task executions started, by kind/strategy.
	TasksStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbbot_execution_tasks_started_total",
			Help: "Total number of tasks started by the execution engine",
		},
		[]string{"kind", "strategy"},
	)

	// TasksCompletedTotal tracks task terminal outcomes.
	TasksCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbbot_execution_tasks_completed_total",
			Help: "Total number of tasks reaching a terminal status",
		},
		[]string{"kind", "status"},
	)

	// TaskDurationSeconds tracks end-to-end task duration.
	TaskDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbbot_execution_task_duration_seconds",
		Help:    "Duration of a task from start to terminal status",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
	})

	// OrdersPlacedTotal tracks individual leg order placements.
	OrdersPlacedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbbot_execution_orders_placed_total",
			Help: "Total number of orders placed, by venue and side",
		},
		[]string{"venue", "side"},
	)

	// HedgeRetriesTotal tracks hedge-leg retry attempts.
	HedgeRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbbot_execution_hedge_retries_total",
		Help: "Total number of hedge-leg retry attempts",
	})

	// UnwindsTotal tracks residual-position unwinds.
	UnwindsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbbot_execution_unwinds_total",
		Help: "Total number of residual-position unwinds triggered",
	})

	// UnwindLossUSD tracks realized loss from unwinds.
	UnwindLossUSD = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbbot_execution_unwind_loss_usd",
		Help: "Cumulative realized loss from unwinding residual positions",
	})

	// PausesTotal tracks task pause events (market moved away).
	PausesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbbot_execution_pauses_total",
		Help: "Total number of task pause events",
	})

	// FillLatencySeconds tracks time from order placement to first fill event.
	FillLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arbbot_execution_fill_latency_seconds",
			Help:    "Latency from order placement to first observed fill, by channel",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"channel"},
	)

	// StateMismatchTotal tracks REST/WS terminal-state disagreements.
	StateMismatchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbbot_execution_state_mismatch_total",
		Help: "Total number of REST/WS terminal-state disagreements (REST wins)",
	})

	// RealizedPnLUSD tracks realized profit/loss across completed tasks.
	RealizedPnLUSD = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbbot_execution_realized_pnl_usd",
		Help: "Cumulative realized profit/loss across completed tasks",
	})
)
