// Package executor turns order intents into confirmed fills: it submits to
// the bridge with bounded retries, applies confirmed fills to the position
// ledger, and records round trips to the trade history.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"marlin/internal/bridge"
	"marlin/internal/domain"
	"marlin/internal/history"
	"marlin/internal/ledger"
	"marlin/internal/notify"
	"marlin/internal/util"
)

// maxOrderAttempts bounds retries on transient bridge failures. Rejections
// are never retried.
const maxOrderAttempts = 3

// Executor submits orders and keeps the ledger and trade history consistent
// with confirmed fills. The ledger is only touched after the bridge confirms.
type Executor struct {
	bridge   bridge.Bridge
	ledger   *ledger.Ledger
	history  history.Source
	notifier notify.Notifier
	log      *slog.Logger
	mode     domain.TradeMode

	now func() time.Time
}

// New wires an Executor. history may be nil; closed trades are then not
// persisted.
func New(b bridge.Bridge, led *ledger.Ledger, src history.Source, n notify.Notifier, mode domain.TradeMode, log *slog.Logger) *Executor {
	return &Executor{
		bridge:   b,
		ledger:   led,
		history:  src,
		notifier: n,
		log:      log,
		mode:     mode,
		now:      time.Now,
	}
}

// ExecuteOrder submits the order, retrying transient failures up to
// maxOrderAttempts. On the final failure it sends exactly one notification
// and leaves the ledger untouched. On a confirmed fill the ledger position
// is updated by the filled quantity.
func (e *Executor) ExecuteOrder(ctx context.Context, order domain.Order) (domain.Fill, error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.SubmittedAt.IsZero() {
		order.SubmittedAt = e.now().UTC()
	}

	var fill domain.Fill
	err := util.Retry(ctx, maxOrderAttempts, func() error {
		f, err := e.bridge.PlaceOrder(ctx, order)
		if errors.Is(err, bridge.ErrRejected) {
			return util.Permanent(err)
		}
		if err != nil {
			e.log.Warn("order attempt failed", "order_id", order.ID, "error", err)
			return err
		}
		fill = f
		return nil
	})
	if err != nil {
		e.log.Error("order failed", "order_id", order.ID, "symbol", order.Symbol, "error", err)
		e.notifier.Notify(ctx, notify.SeverityCritical, "Order execution failed",
			fmt.Sprintf("%s %s %d @ %.2f: %v", order.Symbol, order.Side, order.Qty, order.Price, err))
		return domain.Fill{}, err
	}

	signed := fill.Qty
	if fill.Side == domain.SideSell {
		signed = -signed
	}
	pos := e.ledger.ApplyFill(order.Symbol, signed, fill.Price)
	e.log.Info("order filled",
		"order_id", fill.OrderID, "symbol", order.Symbol, "side", order.Side,
		"qty", fill.Qty, "price", fill.Price, "position", pos)
	return fill, nil
}

// FlattenPosition closes the open position in symbol with an opposite-side
// order for the full quantity. Calling it with no open position is a no-op.
// On success the realized round trip is recorded to the trade history and
// returned; a persistence failure is logged but does not undo the exit.
func (e *Executor) FlattenPosition(ctx context.Context, symbol string, reason string) (domain.ClosedTrade, bool, error) {
	qty := e.ledger.Position(symbol)
	if qty == 0 {
		return domain.ClosedTrade{}, false, nil
	}
	entry, _ := e.ledger.EntryPrice(symbol)

	order := domain.Order{
		Symbol: symbol,
		Qty:    qty,
		Side:   domain.SideSell,
	}
	if qty < 0 {
		order.Qty = -qty
		order.Side = domain.SideBuy
	}

	fill, err := e.ExecuteOrder(ctx, order)
	if err != nil {
		return domain.ClosedTrade{}, false, err
	}

	trade := domain.ClosedTrade{
		ID:         fill.OrderID,
		Symbol:     symbol,
		Mode:       e.mode,
		Qty:        qty,
		EntryPrice: entry,
		ExitPrice:  fill.Price,
		PnL:        (fill.Price - entry) * float64(qty),
		Reason:     reason,
		ClosedAt:   e.now().UTC(),
	}
	if e.history != nil {
		if err := e.history.RecordTrade(ctx, trade); err != nil {
			e.log.Error("recording closed trade", "trade_id", trade.ID, "error", err)
		}
	}
	e.log.Info("position flattened",
		"symbol", symbol, "qty", qty, "entry", entry, "exit", fill.Price,
		"pnl", trade.PnL, "reason", reason)
	return trade, true, nil
}
