package scheduler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// TaskLog is the durable, append-only per-task log (spec §4.5/§6): two
// JSONL files per task (events, orderbooks) plus a summary.json written
// once on terminal status. Events are idempotent on (taskID, sequence); the
// log itself is the authority for per-task sequence numbers — it ignores
// whatever Sequence value an EmitFunc caller passes in and stamps its own
// gap-free counter starting at 1, since the C3 executor's own counter is
// shared across every task it runs and cannot be trusted for this
// invariant (spec §8 invariant 1).
type TaskLog struct {
	baseDir string
	logger  *zap.Logger

	mu   sync.Mutex
	seqs map[string]int64
}

// NewTaskLog constructs a TaskLog rooted at baseDir (default
// "data/logs/tasks").
func NewTaskLog(baseDir string, logger *zap.Logger) *TaskLog {
	if baseDir == "" {
		baseDir = filepath.Join("data", "logs", "tasks")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskLog{baseDir: baseDir, logger: logger, seqs: make(map[string]int64)}
}

func (l *TaskLog) taskDir(taskID string) string {
	return filepath.Join(l.baseDir, taskID)
}

// Emitter returns an EmitFunc bound to taskID that assigns a gap-free
// per-task sequence number and appends the event to events.jsonl.
func (l *TaskLog) Emitter(taskID string) func(types.TaskEvent) {
	return func(event types.TaskEvent) {
		event.TaskID = taskID
		event.Sequence = l.nextSeq(taskID)
		if err := l.appendJSONL(taskID, "events.jsonl", event); err != nil {
			l.logger.Error("task-event-append-failed", zap.String("task-id", taskID), zap.Error(err))
			TaskLogWriteErrorsTotal.WithLabelValues("events").Inc()
		}
	}
}

func (l *TaskLog) nextSeq(taskID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seqs[taskID]++
	return l.seqs[taskID]
}

// AppendSnapshot appends an OrderBookSnapshot to orderbooks.jsonl.
func (l *TaskLog) AppendSnapshot(taskID string, snap types.OrderBookSnapshot) error {
	snap.TaskID = taskID
	if err := l.appendJSONL(taskID, "orderbooks.jsonl", snap); err != nil {
		TaskLogWriteErrorsTotal.WithLabelValues("orderbooks").Inc()
		return err
	}
	return nil
}

// WriteSummary writes summary.json once, on terminal task status.
func (l *TaskLog) WriteSummary(task *types.Task, eventCount int64) error {
	summary := types.TaskSummary{
		Task:        *task,
		EventCount:  eventCount,
		FinalStatus: task.Status,
	}
	if !task.CompletedAt.IsZero() && !task.CreatedAt.IsZero() {
		summary.Duration = task.CompletedAt.Sub(task.CreatedAt)
	}

	dir := l.taskDir(task.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		TaskLogWriteErrorsTotal.WithLabelValues("summary").Inc()
		return fmt.Errorf("create task dir: %w", err)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		TaskLogWriteErrorsTotal.WithLabelValues("summary").Inc()
		return fmt.Errorf("marshal summary: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "summary.json"), data, 0o644); err != nil {
		TaskLogWriteErrorsTotal.WithLabelValues("summary").Inc()
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// EventCount returns the number of events appended for taskID so far.
func (l *TaskLog) EventCount(taskID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seqs[taskID]
}

func (l *TaskLog) appendJSONL(taskID, filename string, v any) error {
	dir := l.taskDir(taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create task dir: %w", err)
	}

	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s entry: %w", filename, err)
	}

	f, err := os.OpenFile(filepath.Join(dir, filename), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", filename, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return nil
}
