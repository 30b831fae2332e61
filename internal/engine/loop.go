// Package engine runs the trading control loop: per tick it refreshes the
// cached news veto, sweeps the risk limits, and evaluates entries and exits;
// a daily task flattens everything and emits a summary.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"marlin/internal/bot"
	"marlin/internal/bridge"
	"marlin/internal/domain"
	"marlin/internal/executor"
	"marlin/internal/history"
	"marlin/internal/ledger"
	"marlin/internal/notify"
	"marlin/internal/risk"
)

// Config carries the loop's trading parameters.
type Config struct {
	Symbol              string
	OrderQty            int64
	ConfidenceThreshold float64
	StopLoss            float64 // per-trade unrealized loss threshold, account currency
	ExceptionalDayPnL   float64
	TickInterval        time.Duration
	VetoRefreshInterval time.Duration
}

// VetoSource is the cached external veto refreshed at a slower cadence than
// the tick.
type VetoSource interface {
	Refresh(ctx context.Context, symbol string)
	Vetoed() (string, bool)
}

// DayJournal persists one trading day's closed trades.
type DayJournal interface {
	WriteDay(date string, trades []domain.ClosedTrade) error
}

// Loop is the per-tick orchestrator. It never acts while halted or outside
// the running state, and it only mutates positions through the executor.
type Loop struct {
	cfg       Config
	lifecycle *bot.Lifecycle
	gate      *risk.Gate
	exec      *executor.Executor
	ledger    *ledger.Ledger
	bridge    bridge.Bridge
	veto      VetoSource
	journal   DayJournal
	history   history.Source
	notifier  notify.Notifier
	events    *Hub
	log       *slog.Logger

	lastCelebrate string
	now           func() time.Time
}

// New wires a Loop. veto, journal, and history may be nil.
func New(
	cfg Config,
	lifecycle *bot.Lifecycle,
	gate *risk.Gate,
	exec *executor.Executor,
	led *ledger.Ledger,
	brg bridge.Bridge,
	veto VetoSource,
	jnl DayJournal,
	src history.Source,
	notifier notify.Notifier,
	events *Hub,
	log *slog.Logger,
) *Loop {
	return &Loop{
		cfg:       cfg,
		lifecycle: lifecycle,
		gate:      gate,
		exec:      exec,
		ledger:    led,
		bridge:    brg,
		veto:      veto,
		journal:   jnl,
		history:   src,
		notifier:  notifier,
		events:    events,
		log:       log,
		now:       time.Now,
	}
}

// Tick runs one control-loop pass. Halted or non-running states skip all
// evaluation, except that a halt with open positions keeps trying to flatten
// them.
func (l *Loop) Tick(ctx context.Context) {
	if _, halted := l.lifecycle.Halted(); halted {
		l.flattenAll(ctx, "emergency halt")
		return
	}
	if l.lifecycle.State() != domain.StateRunning {
		return
	}

	mode := l.lifecycle.Mode()
	report := l.gate.CheckLimits(ctx, mode)
	if report.ShouldHalt {
		l.lifecycle.EmergencyHalt(report.HaltReason)
		l.log.Error("trading halted", "reason", report.HaltReason,
			"daily_pnl", report.DailyPnL, "weekly_pnl", report.WeeklyPnL, "monthly_pnl", report.MonthlyPnL)
		l.notifier.Notify(ctx, notify.SeverityCritical, "Trading halted",
			fmt.Sprintf("%s (daily %.2f, weekly %.2f, monthly %.2f)",
				report.HaltReason, report.DailyPnL, report.WeeklyPnL, report.MonthlyPnL))
		l.events.Publish(Event{Type: EventHalt, Payload: report})
		l.flattenAll(ctx, report.HaltReason)
		return
	}
	if report.ShouldCelebrate && report.CelebrateReason != l.lastCelebrate {
		l.lastCelebrate = report.CelebrateReason
		l.notifier.Notify(ctx, notify.SeverityInfo, "Milestone", report.CelebrateReason)
		l.events.Publish(Event{Type: EventCelebrate, Payload: report})
	}

	sig, err := l.bridge.Signal(ctx)
	if err != nil {
		l.log.Warn("signal unavailable", "error", err)
		return
	}

	pos := l.ledger.Position(l.cfg.Symbol)
	side, hasSide := sig.Side()
	opposite := pos != 0 && hasSide &&
		((pos > 0 && side == domain.SideSell) || (pos < 0 && side == domain.SideBuy))

	if pos == 0 || opposite {
		l.evaluateEntry(ctx, mode, sig, side, hasSide, opposite)
	}
	if open := l.ledger.Position(l.cfg.Symbol); open != 0 {
		l.evaluateExit(ctx, sig, open)
	}
}

func (l *Loop) evaluateEntry(ctx context.Context, mode domain.TradeMode, sig domain.Signal, side domain.OrderSide, hasSide, opposite bool) {
	if !hasSide || sig.ExitRequested {
		return
	}
	if l.veto != nil {
		if reason, vetoed := l.veto.Vetoed(); vetoed {
			l.log.Info("entry vetoed", "reason", reason)
			return
		}
	}
	if sig.Confidence < l.cfg.ConfidenceThreshold {
		l.log.Debug("confidence below threshold", "confidence", sig.Confidence)
		return
	}

	proposed := risk.ProposedTrade{Mode: mode}
	if l.cfg.StopLoss > 0 {
		// Worst case for the new trade is the stop-loss amount.
		worst := -l.cfg.StopLoss
		proposed.RealizedPnL = &worst
	}
	if verdict := l.gate.CheckTradeRisk(ctx, proposed); !verdict.Allowed {
		l.log.Info("entry rejected by risk gate", "reason", verdict.Reason)
		return
	}

	if opposite {
		trade, closed, err := l.exec.FlattenPosition(ctx, l.cfg.Symbol, "signal reversal")
		if err != nil {
			return
		}
		if closed {
			l.events.Publish(Event{Type: EventFlatten, Payload: trade})
		}
	}

	fill, err := l.exec.ExecuteOrder(ctx, domain.Order{
		Symbol: l.cfg.Symbol,
		Side:   side,
		Qty:    l.cfg.OrderQty,
		Price:  sig.ReferencePrice,
	})
	if err != nil {
		return
	}
	l.notifier.Notify(ctx, notify.SeverityInfo, "Order filled",
		fmt.Sprintf("%s %s %d @ %.2f", l.cfg.Symbol, side, fill.Qty, fill.Price))
	l.events.Publish(Event{Type: EventFill, Payload: fill})
}

func (l *Loop) evaluateExit(ctx context.Context, sig domain.Signal, pos int64) {
	reason := ""
	if entry, ok := l.ledger.EntryPrice(l.cfg.Symbol); ok && l.cfg.StopLoss > 0 {
		unrealized := (sig.ReferencePrice - entry) * float64(pos)
		if unrealized < -l.cfg.StopLoss {
			reason = "stop loss"
		}
	}
	if reason == "" && sig.ExitRequested {
		reason = "exit signal"
	}
	if reason == "" {
		return
	}

	trade, closed, err := l.exec.FlattenPosition(ctx, l.cfg.Symbol, reason)
	if err != nil || !closed {
		return
	}
	l.notifier.Notify(ctx, notify.SeverityInfo, "Position closed",
		fmt.Sprintf("%s %+d, P&L %.2f (%s)", trade.Symbol, trade.Qty, trade.PnL, reason))
	l.events.Publish(Event{Type: EventFlatten, Payload: trade})
}

func (l *Loop) flattenAll(ctx context.Context, reason string) {
	for _, sym := range l.ledger.OpenSymbols() {
		trade, closed, err := l.exec.FlattenPosition(ctx, sym, reason)
		if err != nil {
			l.log.Error("flatten failed", "symbol", sym, "error", err)
			continue
		}
		if closed {
			l.events.Publish(Event{Type: EventFlatten, Payload: trade})
		}
	}
}

// EndOfDay flattens every open symbol, journals the day's closed trades, and
// emits the day summary. Flatten failures are logged and skipped so one bad
// symbol does not block the rest.
func (l *Loop) EndOfDay(ctx context.Context) domain.DaySummary {
	now := l.now().UTC()
	date := now.Format("2006-01-02")

	var dayTrades []domain.ClosedTrade
	for _, sym := range l.ledger.OpenSymbols() {
		trade, closed, err := l.exec.FlattenPosition(ctx, sym, "end of day")
		if err != nil {
			l.log.Error("end-of-day flatten failed", "symbol", sym, "error", err)
			continue
		}
		if closed {
			dayTrades = append(dayTrades, trade)
		}
	}

	if l.history != nil {
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if trades, err := l.history.TradesBetween(ctx, l.lifecycle.Mode(), start, now); err == nil {
			dayTrades = trades
		} else {
			l.log.Warn("reading day trades", "error", err)
		}
	}

	realized := 0.0
	for _, tr := range dayTrades {
		realized += tr.PnL
	}
	summary := domain.DaySummary{
		Date:     date,
		Realized: realized,
		Trades:   len(dayTrades),
		Class:    domain.ClassifyDay(realized, l.cfg.ExceptionalDayPnL),
	}

	if l.journal != nil && len(dayTrades) > 0 {
		if err := l.journal.WriteDay(date, dayTrades); err != nil {
			l.log.Error("writing day journal", "date", date, "error", err)
		}
	}

	l.notifier.Notify(ctx, notify.SeverityInfo, "Daily summary",
		fmt.Sprintf("%s: %d trades, realized %.2f (%s)", date, summary.Trades, realized, summary.Class))
	l.events.Publish(Event{Type: EventSummary, Payload: summary})
	return summary
}

// Run drives the loop until ctx is cancelled: the fast tick, the slower veto
// refresh, and the once-daily flatten+summary. Work started by a tick runs
// on an uncancellable context so an in-flight submission finishes; shutdown
// only stops new ticks.
func (l *Loop) Run(ctx context.Context) {
	workCtx := context.WithoutCancel(ctx)
	if l.veto != nil {
		l.veto.Refresh(workCtx, l.cfg.Symbol)
	}

	tick := time.NewTicker(l.cfg.TickInterval)
	defer tick.Stop()
	vetoTick := time.NewTicker(l.cfg.VetoRefreshInterval)
	defer vetoTick.Stop()
	eod := time.NewTimer(untilNextMidnightUTC(l.now()))
	defer eod.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-vetoTick.C:
			if l.veto != nil {
				l.veto.Refresh(workCtx, l.cfg.Symbol)
			}
		case <-tick.C:
			l.Tick(workCtx)
		case <-eod.C:
			l.EndOfDay(workCtx)
			eod.Reset(untilNextMidnightUTC(l.now()))
		}
	}
}

func untilNextMidnightUTC(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return next.Sub(now)
}
