package scheduler

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// PostgresIndex mirrors completed task summaries into a relational table so
// operators can query task history with SQL instead of walking the JSONL
// tree under TaskLog's baseDir. It is an optional side index: the JSONL
// files under TaskLog remain the durable source of truth.
type PostgresIndex struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresIndexConfig configures a PostgresIndex.
type PostgresIndexConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresIndex opens and pings the index database.
func NewPostgresIndex(cfg *PostgresIndexConfig) (*PostgresIndex, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("task-index-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresIndex{db: db, logger: cfg.Logger}, nil
}

// RecordSummary upserts a completed task's summary row, keyed by task id.
func (p *PostgresIndex) RecordSummary(ctx context.Context, summary types.TaskSummary) error {
	query := `
		INSERT INTO task_summaries (
			task_id, kind, strategy, market_id_a, condition_id_b, arb_side,
			quantity, status, event_count, duration_seconds, filled_qty,
			hedged_qty, realized_pnl, failure_reason, completed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
		ON CONFLICT (task_id) DO UPDATE SET
			status = EXCLUDED.status,
			event_count = EXCLUDED.event_count,
			duration_seconds = EXCLUDED.duration_seconds,
			filled_qty = EXCLUDED.filled_qty,
			hedged_qty = EXCLUDED.hedged_qty,
			realized_pnl = EXCLUDED.realized_pnl,
			failure_reason = EXCLUDED.failure_reason,
			completed_at = EXCLUDED.completed_at
	`

	task := summary.Task
	_, err := p.db.ExecContext(ctx, query,
		task.ID,
		string(task.Kind),
		string(task.Strategy),
		task.MarketIDA,
		task.ConditionIDB,
		string(task.ArbSide),
		task.Quantity,
		string(summary.FinalStatus),
		summary.EventCount,
		summary.Duration.Seconds(),
		task.Counters.FilledQty,
		task.Counters.HedgedQty,
		task.Counters.RealizedPnL,
		task.FailureReason,
		task.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert task summary: %w", err)
	}

	p.logger.Debug("task-summary-indexed",
		zap.String("task-id", task.ID),
		zap.String("status", string(summary.FinalStatus)))

	return nil
}

// Close closes the index database connection.
func (p *PostgresIndex) Close() error {
	p.logger.Info("closing-task-index")
	return p.db.Close()
}
