// Package history persists closed trades and answers the aggregate queries
// the risk gate needs: trailing realized P&L, win counts, max drawdown, and
// trade counts over a window. Two backends are provided: SQLite for
// single-host deployments and Postgres for shared ones.
package history

import (
	"context"
	"time"

	"marlin/internal/domain"
)

// Source is the trade-history query surface. Implementations must treat an
// empty history as zero values, not errors; a query error means the backend
// itself is unavailable and is handled by the caller (fail-open for limit
// checks, fail-closed for go-live).
type Source interface {
	// RecordTrade persists one closed trade.
	RecordTrade(ctx context.Context, trade domain.ClosedTrade) error

	// RealizedPnLSince sums realized P&L for the mode since the timestamp.
	RealizedPnLSince(ctx context.Context, mode domain.TradeMode, since time.Time) (float64, error)

	// TradeCounts returns total and winning closed-trade counts for the mode.
	TradeCounts(ctx context.Context, mode domain.TradeMode) (total, wins int, err error)

	// MaxDrawdownSince returns the largest peak-to-trough decline of
	// cumulative realized P&L since the timestamp, as a non-negative magnitude.
	MaxDrawdownSince(ctx context.Context, mode domain.TradeMode, since time.Time) (float64, error)

	// CountTradesSince counts closed trades for the mode since the timestamp.
	CountTradesSince(ctx context.Context, mode domain.TradeMode, since time.Time) (int, error)

	// TradesBetween returns closed trades for the mode in [start, end),
	// ordered by close time.
	TradesBetween(ctx context.Context, mode domain.TradeMode, start, end time.Time) ([]domain.ClosedTrade, error)
}

// maxDrawdown walks realized P&L values in close order and returns the
// largest drop from a running equity peak.
func maxDrawdown(pnls []float64) float64 {
	var equity, peak, worst float64
	for _, p := range pnls {
		equity += p
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > worst {
			worst = dd
		}
	}
	return worst
}
