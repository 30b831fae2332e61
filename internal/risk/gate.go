// Package risk enforces the multi-horizon loss and profit limits, the
// pre-trade risk check, and the go-live eligibility gate.
//
// Missing history data is handled asymmetrically on purpose: limit and
// pre-trade checks fail open (halting blind is worse than trading blind,
// since halting also requires data), while go-live promotion fails closed
// (no data means no live capital).
package risk

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"marlin/internal/domain"
	"marlin/internal/history"
	"marlin/internal/settings"
)

// Limits are the default limit magnitudes, each overridable per check
// through the settings store. All values are non-negative magnitudes in the
// account currency.
type Limits struct {
	DailyLoss     float64
	WeeklyLoss    float64
	MonthlyLoss   float64
	WeeklyProfit  float64
	MonthlyProfit float64
}

// EligibilityConfig is the go-live promotion gate.
type EligibilityConfig struct {
	MinTrades      int
	MinWinRate     float64 // e.g. 0.55
	MaxDrawdownPct float64 // e.g. 0.05, relative to AccountEquity
	AccountEquity  float64
}

// ProposedTrade describes a trade about to be submitted, for the pre-trade
// check. RealizedPnL is the trade's expected realized P&L if known; nil
// means unknown, which the check treats as risk-free.
type ProposedTrade struct {
	Mode        domain.TradeMode
	RealizedPnL *float64
}

// Gate evaluates risk limits against the trade history. A nil history
// source is tolerated: limit checks see zero P&L, eligibility is denied.
type Gate struct {
	history  history.Source
	settings settings.Store
	limits   Limits
	elig     EligibilityConfig
	log      *slog.Logger

	now func() time.Time
}

// NewGate creates a Gate wired with the given dependencies.
func NewGate(src history.Source, store settings.Store, limits Limits, elig EligibilityConfig, log *slog.Logger) *Gate {
	return &Gate{
		history:  src,
		settings: store,
		limits:   limits,
		elig:     elig,
		log:      log,
		now:      time.Now,
	}
}

// Halt reasons, surfaced in notifications and operator responses.
const (
	ReasonDailyLoss   = "Daily loss limit"
	ReasonWeeklyLoss  = "Weekly loss limit"
	ReasonMonthlyLoss = "Monthly loss limit"
)

// resolveLimit reads the override store for key, falling back to def when no
// override exists or the store errors. A malformed (non-numeric) override is
// coerced to 0 — for a loss limit that means any loss breaches, which is the
// conservative reading of a misconfiguration.
func (g *Gate) resolveLimit(ctx context.Context, key string, def float64) float64 {
	if g.settings == nil {
		return def
	}
	raw, ok, err := g.settings.Get(ctx, key)
	if err != nil {
		g.log.Warn("reading limit override", "key", key, "error", err)
		return def
	}
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		g.log.Warn("malformed limit override, coercing to 0", "key", key, "value", raw)
		return 0
	}
	return v
}

// pnlSince is a zero-on-error read of trailing realized P&L.
func (g *Gate) pnlSince(ctx context.Context, mode domain.TradeMode, since time.Time) (float64, bool) {
	if g.history == nil {
		return 0, false
	}
	pnl, err := g.history.RealizedPnLSince(ctx, mode, since)
	if err != nil {
		g.log.Warn("trade history unavailable", "error", err)
		return 0, false
	}
	return pnl, true
}

// breached reports whether trailing P&L falls below the negative limit.
func breached(pnl, limit float64) bool {
	return pnl < -limit
}

// CheckLimits computes trailing P&L over the 1/7/30-day windows and compares
// each loss against its limit, daily first — the first breach sets the halt
// reason. Profit limits are informational: reaching one sets the celebrate
// flag without halting. If the history source is unavailable, all P&L reads
// default to 0 and no limit fires.
func (g *Gate) CheckLimits(ctx context.Context, mode domain.TradeMode) domain.LimitReport {
	now := g.now()
	var report domain.LimitReport

	daily, ok := g.pnlSince(ctx, mode, now.Add(-24*time.Hour))
	if !ok {
		return report
	}
	weekly, _ := g.pnlSince(ctx, mode, now.Add(-7*24*time.Hour))
	monthly, _ := g.pnlSince(ctx, mode, now.Add(-30*24*time.Hour))

	report.DailyPnL = daily
	report.WeeklyPnL = weekly
	report.MonthlyPnL = monthly

	report.DailyLossHit = breached(daily, g.resolveLimit(ctx, settings.KeyDailyLossLimit, g.limits.DailyLoss))
	report.WeeklyLossHit = breached(weekly, g.resolveLimit(ctx, settings.KeyWeeklyLossLimit, g.limits.WeeklyLoss))
	report.MonthlyLossHit = breached(monthly, g.resolveLimit(ctx, settings.KeyMonthlyLossLimit, g.limits.MonthlyLoss))

	switch {
	case report.DailyLossHit:
		report.ShouldHalt = true
		report.HaltReason = ReasonDailyLoss
	case report.WeeklyLossHit:
		report.ShouldHalt = true
		report.HaltReason = ReasonWeeklyLoss
	case report.MonthlyLossHit:
		report.ShouldHalt = true
		report.HaltReason = ReasonMonthlyLoss
	}

	weeklyProfit := g.resolveLimit(ctx, settings.KeyWeeklyProfitLimit, g.limits.WeeklyProfit)
	monthlyProfit := g.resolveLimit(ctx, settings.KeyMonthlyProfitLimit, g.limits.MonthlyProfit)
	switch {
	case weekly > 0 && weekly >= weeklyProfit:
		report.ShouldCelebrate = true
		report.CelebrateReason = "Weekly profit target reached"
	case monthly > 0 && monthly >= monthlyProfit:
		report.ShouldCelebrate = true
		report.CelebrateReason = "Monthly profit target reached"
	}

	if g.history != nil {
		if n, err := g.history.CountTradesSince(ctx, mode, now.Add(-24*time.Hour)); err == nil {
			report.TradesToday = n
		}
	}

	return report
}

// CheckTradeRisk re-evaluates the daily then weekly loss limits after
// hypothetically applying the proposed trade's realized P&L, rejecting the
// trade if either would breach. A proposal with no realized P&L or no mode
// is treated as risk-free.
func (g *Gate) CheckTradeRisk(ctx context.Context, proposed ProposedTrade) domain.TradeRiskResult {
	if proposed.RealizedPnL == nil || proposed.Mode == "" {
		return domain.TradeRiskResult{Allowed: true}
	}

	now := g.now()
	daily, ok := g.pnlSince(ctx, proposed.Mode, now.Add(-24*time.Hour))
	if !ok {
		return domain.TradeRiskResult{Allowed: true}
	}
	weekly, _ := g.pnlSince(ctx, proposed.Mode, now.Add(-7*24*time.Hour))

	delta := *proposed.RealizedPnL
	if breached(daily+delta, g.resolveLimit(ctx, settings.KeyDailyLossLimit, g.limits.DailyLoss)) {
		return domain.TradeRiskResult{Allowed: false, Reason: "trade would breach daily loss limit"}
	}
	if breached(weekly+delta, g.resolveLimit(ctx, settings.KeyWeeklyLossLimit, g.limits.WeeklyLoss)) {
		return domain.TradeRiskResult{Allowed: false, Reason: "trade would breach weekly loss limit"}
	}
	return domain.TradeRiskResult{Allowed: true}
}

// CheckGoLiveEligibility decides whether the paper strategy may trade live
// capital: enough closed trades, a sufficient win rate, and a bounded max
// drawdown relative to account equity — all three must hold. Missing or
// failing history denies promotion.
func (g *Gate) CheckGoLiveEligibility(ctx context.Context) domain.EligibilityResult {
	var result domain.EligibilityResult
	if g.history == nil {
		return result
	}

	total, wins, err := g.history.TradeCounts(ctx, domain.ModePaper)
	if err != nil {
		g.log.Warn("eligibility: trade history unavailable", "error", err)
		return result
	}

	result.ClosedTrades = total
	result.HasEnoughTrades = total >= g.elig.MinTrades
	if total > 0 {
		result.WinRate = float64(wins) / float64(total)
	}
	result.WinRateOK = result.WinRate >= g.elig.MinWinRate

	dd, err := g.history.MaxDrawdownSince(ctx, domain.ModePaper, time.Unix(0, 0))
	if err != nil {
		g.log.Warn("eligibility: drawdown unavailable", "error", err)
		return result
	}
	if g.elig.AccountEquity > 0 {
		result.DrawdownPct = dd / g.elig.AccountEquity
	}
	result.DrawdownOK = result.DrawdownPct <= g.elig.MaxDrawdownPct

	result.Eligible = result.HasEnoughTrades && result.WinRateOK && result.DrawdownOK
	return result
}
