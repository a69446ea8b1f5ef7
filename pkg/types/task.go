package types

import "time"

// TaskParams holds the kind/strategy-dependent required fields validated at
// task creation time (spec §4.5).
type TaskParams struct {
	PredictPrice     float64 // BUY+MAKER limit price, or SELL+TAKER limit price.
	PredictAskPrice  float64 // BUY+TAKER / SELL+MAKER price.
	PolymarketMaxAsk float64 // BUY tasks: cap on the hedge leg's ask.
	PolymarketMinBid float64 // SELL tasks: floor on the hedge leg's bid.
	MaxTotalCost     float64 // BUY+TAKER.
	MinProfitBuffer  float64 // BUY+MAKER.
	EntryCost        float64 // SELL tasks only.
}

// RequiredFields returns the names of the fields that must be non-zero for
// the given (kind, strategy) combination, per spec §4.5.
func RequiredFields(kind TaskKind, strategy Strategy) []string {
	switch {
	case kind == TaskBuy && strategy == StrategyTaker:
		return []string{"PredictAskPrice", "PolymarketMaxAsk", "MaxTotalCost"}
	case kind == TaskBuy && strategy == StrategyMaker:
		return []string{"PredictPrice", "PolymarketMaxAsk", "MinProfitBuffer"}
	case kind == TaskSell && strategy == StrategyTaker:
		return []string{"PredictPrice", "PolymarketMinBid", "EntryCost"}
	case kind == TaskSell && strategy == StrategyMaker:
		return []string{"PredictAskPrice", "PolymarketMinBid", "EntryCost"}
	default:
		return nil
	}
}

// Validate checks that every field RequiredFields names is non-zero,
// returning a *ValidationError referencing the first missing field.
func (p *TaskParams) Validate(kind TaskKind, strategy Strategy) error {
	for _, field := range RequiredFields(kind, strategy) {
		var v float64
		switch field {
		case "PredictPrice":
			v = p.PredictPrice
		case "PredictAskPrice":
			v = p.PredictAskPrice
		case "PolymarketMaxAsk":
			v = p.PolymarketMaxAsk
		case "PolymarketMinBid":
			v = p.PolymarketMinBid
		case "MaxTotalCost":
			v = p.MaxTotalCost
		case "MinProfitBuffer":
			v = p.MinProfitBuffer
		case "EntryCost":
			v = p.EntryCost
		}
		if v == 0 {
			return &ValidationError{Field: field, Reason: "required for this (kind, strategy) combination"}
		}
	}
	return nil
}

// TaskCounters aggregates mutable progress counters updated as a task runs.
type TaskCounters struct {
	FilledQty       float64
	HedgedQty       float64
	AvgFillPrice    float64
	AvgHedgePrice   float64
	RealizedPnL     float64
	PauseCount      int
	HedgeRetryCount int
}

// Task is the persisted unit of work the scheduler (C5) drives through C3.
type Task struct {
	ID             string
	Kind           TaskKind
	Strategy       Strategy
	MarketIDA      string
	ConditionIDB   string
	ArbSide        Outcome
	Quantity       float64
	Params         TaskParams
	FeeRateBps     float64
	OrderTimeout   time.Duration
	MaxHedgeRetries int
	Status         TaskStatus
	Counters       TaskCounters
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    time.Time
	FailureReason  string
}

// TaskEventKind enumerates the structured events appended to a task's
// durable log.
type TaskEventKind string

const (
	EventOrderSubmitted TaskEventKind = "ORDER_SUBMITTED"
	EventOrderFilled    TaskEventKind = "ORDER_FILLED"
	EventOrderCancelled TaskEventKind = "ORDER_CANCELLED"
	EventPause          TaskEventKind = "PAUSE"
	EventResume         TaskEventKind = "RESUME"
	EventHedgeAttempt   TaskEventKind = "HEDGE_ATTEMPT"
	EventHedgeComplete  TaskEventKind = "HEDGE_COMPLETE"
	EventUnwindStart    TaskEventKind = "UNWIND_START"
	EventTaskComplete   TaskEventKind = "TASK_COMPLETE"
	EventTaskFailed     TaskEventKind = "TASK_FAILED"
)

// EventPriority tags an event for downstream filtering/alerting.
type EventPriority string

const (
	PriorityInfo     EventPriority = "INFO"
	PriorityWarning  EventPriority = "WARNING"
	PriorityCritical EventPriority = "CRITICAL"
)

// TaskEvent is a single append-only log entry. (TaskID, Sequence) is unique
// and gap-free, starting at 1.
type TaskEvent struct {
	TaskID     string
	Sequence   int64
	OccurredAt time.Time
	Kind       TaskEventKind
	Priority   EventPriority
	ExecutorID string
	AttemptID  string
	OrderID    string
	Payload    map[string]any
}

// OrderBookSnapshot is a point-in-time capture of both venues' books plus
// derived arbitrage metrics, attached to the task log at decision points.
type OrderBookSnapshot struct {
	TaskID       string
	CapturedAt   time.Time
	BookA        *NormalizedOrderBook
	BookB        *NormalizedOrderBook
	TotalCost    float64
	ProfitPct    float64
	Valid        bool
	MaxDepth     float64
}

// TaskSummary is the terminal, once-written rollup persisted to
// summary.json.
type TaskSummary struct {
	Task        Task
	EventCount  int64
	FinalStatus TaskStatus
	Duration    time.Duration
}
