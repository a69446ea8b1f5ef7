package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/arbitrage"
)

// PostgresStorage mirrors every detected opportunity into a relational
// table so operators can query arb history with SQL. Unlike the task
// index, this is the sole record of an opportunity; there is no JSONL
// fallback because a detected-but-not-executed opportunity has no task.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig configures a PostgresStorage.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage opens and pings the opportunity database.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
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

	cfg.Logger.Info("opportunity-store-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{db: db, logger: cfg.Logger}, nil
}

// StoreOpportunity implements arbitrage.Storage.
func (p *PostgresStorage) StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error {
	query := `
		INSERT INTO opportunities (
			id, event_title, market_id_a, condition_id_b, arb_side,
			detected_at, maker_cost, maker_has_arb, maker_max_qty, maker_profit,
			taker_cost, taker_fee_paid, taker_has_arb, taker_max_qty, taker_profit
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := p.db.ExecContext(ctx, query,
		opp.ID,
		opp.Mapping.EventTitle,
		opp.Mapping.MarketIDA,
		opp.Mapping.ConditionIDB,
		string(opp.ArbSide),
		opp.DetectedAt,
		opp.Costs.MakerCost,
		opp.Costs.MakerHasArb,
		opp.Costs.MakerMaxQty,
		opp.Costs.MakerProfit,
		opp.Costs.TakerCost,
		opp.Costs.TakerFeePaid,
		opp.Costs.TakerHasArb,
		opp.Costs.TakerMaxQty,
		opp.Costs.TakerProfit,
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}
	return nil
}

// Close implements arbitrage.Storage.
func (p *PostgresStorage) Close() error {
	return p.db.Close()
}
