package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

func testSummary() types.TaskSummary {
	return types.TaskSummary{
		Task: types.Task{
			ID:            "task-123",
			Kind:          types.TaskBuy,
			Strategy:      types.StrategyTaker,
			MarketIDA:     "market-a-1",
			ConditionIDB:  "condition-b-1",
			ArbSide:       types.OutcomeYes,
			Quantity:      10,
			CompletedAt:   time.Now(),
			Counters:      types.TaskCounters{FilledQty: 10, HedgedQty: 10, RealizedPnL: 0.42},
			FailureReason: "",
		},
		EventCount:  6,
		FinalStatus: types.TaskCompleted,
		Duration:    90 * time.Second,
	}
}

func TestPostgresIndex_RecordSummary(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	index := &PostgresIndex{db: db, logger: logger}
	summary := testSummary()

	mock.ExpectExec("INSERT INTO task_summaries").
		WithArgs(
			summary.Task.ID,
			string(summary.Task.Kind),
			string(summary.Task.Strategy),
			summary.Task.MarketIDA,
			summary.Task.ConditionIDB,
			string(summary.Task.ArbSide),
			summary.Task.Quantity,
			string(summary.FinalStatus),
			summary.EventCount,
			summary.Duration.Seconds(),
			summary.Task.Counters.FilledQty,
			summary.Task.Counters.HedgedQty,
			summary.Task.Counters.RealizedPnL,
			summary.Task.FailureReason,
			summary.Task.CompletedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := index.RecordSummary(context.Background(), summary); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresIndex_RecordSummary_Error(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	index := &PostgresIndex{db: db, logger: logger}
	summary := testSummary()

	mock.ExpectExec("INSERT INTO task_summaries").
		WithArgs(
			summary.Task.ID,
			string(summary.Task.Kind),
			string(summary.Task.Strategy),
			summary.Task.MarketIDA,
			summary.Task.ConditionIDB,
			string(summary.Task.ArbSide),
			summary.Task.Quantity,
			string(summary.FinalStatus),
			summary.EventCount,
			summary.Duration.Seconds(),
			summary.Task.Counters.FilledQty,
			summary.Task.Counters.HedgedQty,
			summary.Task.Counters.RealizedPnL,
			summary.Task.FailureReason,
			summary.Task.CompletedAt,
		).
		WillReturnError(sqlmock.ErrCancelled)

	if err := index.RecordSummary(context.Background(), summary); err == nil {
		t.Error("expected error, got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresIndex_Close(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	index := &PostgresIndex{db: db, logger: logger}
	mock.ExpectClose()

	if err := index.Close(); err != nil {
		t.Errorf("expected no error on close, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
