// Package scheduler implements C5: the per-market task queue and durable
// task log that sequences C3's two-leg execution state machine per
// detected arbitrage opportunity (spec §4.5).
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/execution"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// Executor drives a single Task through C3's state machine until it reaches
// a terminal status, satisfied by *execution.TaskExecutor.
type Executor interface {
	Execute(ctx context.Context, task *types.Task, emit execution.EmitFunc) error
}

// Scheduler enforces at most one RUNNING task per (Venue-A market id,
// Venue-B condition id) pair, persists every task's event/snapshot/summary
// log, and runs accepted tasks to completion via Executor.
type Scheduler struct {
	executor Executor
	log      *TaskLog
	index    *PostgresIndex
	logger   *zap.Logger

	mu          sync.Mutex
	ctx         context.Context
	marketSlots map[string]string // marketKey -> running taskID.
	tasks       map[string]*types.Task
	cancelFuncs map[string]context.CancelFunc
	cancelled   map[string]bool
	wg          sync.WaitGroup
}

// Config configures a Scheduler.
type Config struct {
	Executor Executor
	Log      *TaskLog
	Index    *PostgresIndex // optional; nil disables the relational side index.
	Logger   *zap.Logger
}

// New constructs a Scheduler. Start must be called before Create.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		executor:    cfg.Executor,
		log:         cfg.Log,
		index:       cfg.Index,
		logger:      logger,
		marketSlots: make(map[string]string),
		tasks:       make(map[string]*types.Task),
		cancelFuncs: make(map[string]context.CancelFunc),
		cancelled:   make(map[string]bool),
	}
}

// Start records the long-lived context that every accepted task's execution
// is derived from (so a caller-scoped Create context, e.g. an HTTP request,
// never cuts a task short).
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
}

// Wait blocks until every task spawned by Create has reached a terminal
// status, for use during graceful shutdown.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func marketKey(task *types.Task) string {
	return task.MarketIDA + "|" + task.ConditionIDB
}

// Create validates spec, rejects it with ErrMarketBusy if its market already
// has a RUNNING task, and otherwise assigns an id and starts execution in
// the background (spec §4.5 "Queue"/"Validation at create time").
func (s *Scheduler) Create(spec types.Task) (*types.Task, error) {
	if err := spec.Params.Validate(spec.Kind, spec.Strategy); err != nil {
		TasksRejectedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	task := spec
	task.ID = uuid.New().String()
	task.Status = types.TaskQueued
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	key := marketKey(&task)

	s.mu.Lock()
	if _, busy := s.marketSlots[key]; busy {
		s.mu.Unlock()
		TasksRejectedTotal.WithLabelValues("market_busy").Inc()
		return nil, fmt.Errorf("%w: market %s", types.ErrMarketBusy, key)
	}
	if s.ctx == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("scheduler not started")
	}
	s.marketSlots[key] = task.ID
	s.tasks[task.ID] = &task
	runCtx := s.ctx
	s.mu.Unlock()

	TasksCreatedTotal.WithLabelValues(string(task.Kind), string(task.Strategy)).Inc()

	s.wg.Add(1)
	go s.run(runCtx, &task, key)

	return &task, nil
}

func (s *Scheduler) run(parent context.Context, task *types.Task, key string) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	s.cancelFuncs[task.ID] = cancel
	s.mu.Unlock()

	task.Status = types.TaskRunning
	task.UpdatedAt = time.Now()
	RunningTasksGauge.Inc()
	defer RunningTasksGauge.Dec()

	rawEmit := s.log.Emitter(task.ID)
	emit := func(event types.TaskEvent) {
		switch event.Kind {
		case types.EventPause:
			task.Status = types.TaskPaused
			task.UpdatedAt = time.Now()
		case types.EventResume:
			task.Status = types.TaskRunning
			task.UpdatedAt = time.Now()
		}
		rawEmit(event)
	}

	err := s.executor.Execute(ctx, task, emit)

	s.mu.Lock()
	wasCancelled := s.cancelled[task.ID]
	delete(s.cancelled, task.ID)
	delete(s.cancelFuncs, task.ID)
	delete(s.marketSlots, key)
	s.mu.Unlock()
	cancel()

	if wasCancelled {
		task.Status = types.TaskCancelled
		task.CompletedAt = time.Now()
		TasksCancelledTotal.Inc()
	} else if err != nil {
		s.logger.Warn("task-execution-failed", zap.String("task-id", task.ID), zap.Error(err))
	}

	eventCount := s.log.EventCount(task.ID)
	if err := s.log.WriteSummary(task, eventCount); err != nil {
		s.logger.Error("task-summary-write-failed", zap.String("task-id", task.ID), zap.Error(err))
	}

	if s.index != nil {
		summary := types.TaskSummary{Task: *task, EventCount: eventCount, FinalStatus: task.Status}
		if !task.CompletedAt.IsZero() && !task.CreatedAt.IsZero() {
			summary.Duration = task.CompletedAt.Sub(task.CreatedAt)
		}
		if err := s.index.RecordSummary(parent, summary); err != nil {
			s.logger.Warn("task-index-write-failed", zap.String("task-id", task.ID), zap.Error(err))
		}
	}
}

// Cancel moves taskID to terminal CANCELLED by cancelling its execution
// context; the in-flight Execute call observes ctx.Done() at its next
// suspension point (spec §5 "Cancellation and timeouts").
func (s *Scheduler) Cancel(taskID string) error {
	s.mu.Lock()
	task, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("unknown task %q", taskID)
	}
	if task.Status.IsTerminal() {
		s.mu.Unlock()
		return fmt.Errorf("task %q already terminal (%s)", taskID, task.Status)
	}
	cancel, running := s.cancelFuncs[taskID]
	s.cancelled[taskID] = true
	s.mu.Unlock()

	if running {
		cancel()
	}
	return nil
}

// Task returns the current in-memory state of taskID.
func (s *Scheduler) Task(taskID string) (*types.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	return t, ok
}

// Tasks returns every task the scheduler currently knows about (any
// status), for dashboard/reporting use.
func (s *Scheduler) Tasks() []*types.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out
}
