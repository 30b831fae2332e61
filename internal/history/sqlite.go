package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"marlin/internal/domain"
)

// Compile-time interface check.
var _ Source = (*SQLiteSource)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS closed_trades (
    id          TEXT PRIMARY KEY,
    symbol      TEXT     NOT NULL,
    mode        TEXT     NOT NULL,
    qty         INTEGER  NOT NULL,
    entry_price REAL     NOT NULL,
    exit_price  REAL     NOT NULL,
    pnl         REAL     NOT NULL,
    reason      TEXT     NOT NULL DEFAULT '',
    closed_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_mode_closed ON closed_trades(mode, closed_at);
`

// SQLiteSource implements Source backed by a SQLite database.
type SQLiteSource struct {
	db *sql.DB
}

// NewSQLiteSource opens (or creates) a SQLite database at dbPath and applies
// the trade schema.
func NewSQLiteSource(dbPath string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open %q: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &SQLiteSource{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

// RecordTrade inserts one closed trade.
func (s *SQLiteSource) RecordTrade(ctx context.Context, t domain.ClosedTrade) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO closed_trades (id, symbol, mode, qty, entry_price, exit_price, pnl, reason, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Symbol, string(t.Mode), t.Qty, t.EntryPrice, t.ExitPrice, t.PnL, t.Reason, t.ClosedAt.UTC())
	if err != nil {
		return fmt.Errorf("history: record trade %s: %w", t.ID, err)
	}
	return nil
}

// RealizedPnLSince sums realized P&L for the mode since the timestamp.
func (s *SQLiteSource) RealizedPnLSince(ctx context.Context, mode domain.TradeMode, since time.Time) (float64, error) {
	var pnl float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(pnl), 0) FROM closed_trades WHERE mode = ? AND closed_at >= ?`,
		string(mode), since.UTC()).Scan(&pnl)
	if err != nil {
		return 0, fmt.Errorf("history: pnl since %s: %w", since.Format(time.RFC3339), err)
	}
	return pnl, nil
}

// TradeCounts returns total and winning closed-trade counts for the mode.
func (s *SQLiteSource) TradeCounts(ctx context.Context, mode domain.TradeMode) (int, int, error) {
	var total, wins int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0)
		 FROM closed_trades WHERE mode = ?`, string(mode)).Scan(&total, &wins)
	if err != nil {
		return 0, 0, fmt.Errorf("history: trade counts: %w", err)
	}
	return total, wins, nil
}

// MaxDrawdownSince computes the largest peak-to-trough decline of cumulative
// realized P&L since the timestamp.
func (s *SQLiteSource) MaxDrawdownSince(ctx context.Context, mode domain.TradeMode, since time.Time) (float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pnl FROM closed_trades WHERE mode = ? AND closed_at >= ? ORDER BY closed_at`,
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
func (s *SQLiteSource) CountTradesSince(ctx context.Context, mode domain.TradeMode, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM closed_trades WHERE mode = ? AND closed_at >= ?`,
		string(mode), since.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("history: count since: %w", err)
	}
	return n, nil
}

// TradesBetween returns closed trades for the mode in [start, end).
func (s *SQLiteSource) TradesBetween(ctx context.Context, mode domain.TradeMode, start, end time.Time) ([]domain.ClosedTrade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, mode, qty, entry_price, exit_price, pnl, reason, closed_at
		 FROM closed_trades
		 WHERE mode = ? AND closed_at >= ? AND closed_at < ?
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
