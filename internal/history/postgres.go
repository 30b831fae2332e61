package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"marlin/internal/domain"
)

// Compile-time interface check.
var _ Source = (*PostgresSource)(nil)

const pgSchema = `
CREATE TABLE IF NOT EXISTS closed_trades (
    id          TEXT PRIMARY KEY,
    symbol      TEXT             NOT NULL,
    mode        TEXT             NOT NULL,
    qty         BIGINT           NOT NULL,
    entry_price DOUBLE PRECISION NOT NULL,
    exit_price  DOUBLE PRECISION NOT NULL,
    pnl         DOUBLE PRECISION NOT NULL,
    reason      TEXT             NOT NULL DEFAULT '',
    closed_at   TIMESTAMPTZ      NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_mode_closed ON closed_trades(mode, closed_at);
`

// PostgresSource implements Source backed by Postgres, for deployments where
// the trade history is shared with reporting tooling.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource connects to Postgres with the given DSN and applies the
// trade schema.
func NewPostgresSource(ctx context.Context, dsn string) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("history: connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &PostgresSource{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresSource) Close() {
	s.pool.Close()
}

// RecordTrade inserts one closed trade.
func (s *PostgresSource) RecordTrade(ctx context.Context, t domain.ClosedTrade) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO closed_trades (id, symbol, mode, qty, entry_price, exit_price, pnl, reason, closed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.Symbol, string(t.Mode), t.Qty, t.EntryPrice, t.ExitPrice, t.PnL, t.Reason, t.ClosedAt.UTC())
	if err != nil {
		return fmt.Errorf("history: record trade %s: %w", t.ID, err)
	}
	return nil
}

// RealizedPnLSince sums realized P&L for the mode since the timestamp.
func (s *PostgresSource) RealizedPnLSince(ctx context.Context, mode domain.TradeMode, since time.Time) (float64, error) {
	var pnl float64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(pnl), 0) FROM closed_trades WHERE mode = $1 AND closed_at >= $2`,
		string(mode), since.UTC()).Scan(&pnl)
	if err != nil {
		return 0, fmt.Errorf("history: pnl since %s: %w", since.Format(time.RFC3339), err)
	}
	return pnl, nil
}

// TradeCounts returns total and winning closed-trade counts for the mode.
func (s *PostgresSource) TradeCounts(ctx context.Context, mode domain.TradeMode) (int, int, error) {
	var total, wins int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0)
		 FROM closed_trades WHERE mode = $1`, string(mode)).Scan(&total, &wins)
	if err != nil {
		return 0, 0, fmt.Errorf("history: trade counts: %w", err)
	}
	return total, wins, nil
}

// MaxDrawdownSince computes the largest peak-to-trough decline of cumulative
// realized P&L since the timestamp.
func (s *PostgresSource) MaxDrawdownSince(ctx context.Context, mode domain.TradeMode, since time.Time) (float64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT pnl FROM closed_trades WHERE mode = $1 AND closed_at >= $2 ORDER BY closed_at`,
		string(mode), since.UTC())
	if err != nil {
		return 0, fmt.Errorf("history: drawdown query: %w", err)
	}
	defer rows.Close()

	var pnls []float64
	for rows.Next() {
		var p float64
		if err := rows.Scan(&p); err != nil {
			return 0, fmt.Errorf("history: drawdown scan: %w", err)
		}
		pnls = append(pnls, p)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("history: drawdown rows: %w", err)
	}
	return maxDrawdown(pnls), nil
}

// CountTradesSince counts closed trades for the mode since the timestamp.
func (s *PostgresSource) CountTradesSince(ctx context.Context, mode domain.TradeMode, since time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM closed_trades WHERE mode = $1 AND closed_at >= $2`,
		string(mode), since.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("history: count since: %w", err)
	}
	return n, nil
}

// TradesBetween returns closed trades for the mode in [start, end).
func (s *PostgresSource) TradesBetween(ctx context.Context, mode domain.TradeMode, start, end time.Time) ([]domain.ClosedTrade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, symbol, mode, qty, entry_price, exit_price, pnl, reason, closed_at
		 FROM closed_trades
		 WHERE mode = $1 AND closed_at >= $2 AND closed_at < $3
		 ORDER BY closed_at`,
		string(mode), start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("history: trades between: %w", err)
	}
	defer rows.Close()

	var trades []domain.ClosedTrade
	for rows.Next() {
		var t domain.ClosedTrade
		var mode string
		if err := rows.Scan(&t.ID, &t.Symbol, &mode, &t.Qty, &t.EntryPrice, &t.ExitPrice, &t.PnL, &t.Reason, &t.ClosedAt); err != nil {
			return nil, fmt.Errorf("history: trades scan: %w", err)
		}
		t.Mode = domain.TradeMode(mode)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
