package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"marlin/internal/domain"
	"marlin/internal/history"
	"marlin/internal/settings"
	"marlin/internal/util"
)

// fakeHistory serves canned window aggregates. Windows are distinguished by
// the distance of the since timestamp from the fixed test clock.
type fakeHistory struct {
	now     time.Time
	daily   float64
	weekly  float64
	monthly float64

	total    int
	wins     int
	drawdown float64
	trades   int

	err error
}

func (f *fakeHistory) RecordTrade(context.Context, domain.ClosedTrade) error { return nil }

func (f *fakeHistory) RealizedPnLSince(_ context.Context, _ domain.TradeMode, since time.Time) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	switch {
	case since.After(f.now.Add(-48 * time.Hour)):
		return f.daily, nil
	case since.After(f.now.Add(-14 * 24 * time.Hour)):
		return f.weekly, nil
	default:
		return f.monthly, nil
	}
}

func (f *fakeHistory) TradeCounts(context.Context, domain.TradeMode) (int, int, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	return f.total, f.wins, nil
}

func (f *fakeHistory) MaxDrawdownSince(context.Context, domain.TradeMode, time.Time) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.drawdown, nil
}

func (f *fakeHistory) CountTradesSince(context.Context, domain.TradeMode, time.Time) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.trades, nil
}

func (f *fakeHistory) TradesBetween(context.Context, domain.TradeMode, time.Time, time.Time) ([]domain.ClosedTrade, error) {
	return nil, nil
}

var testLimits = Limits{
	DailyLoss:     1000,
	WeeklyLoss:    3000,
	MonthlyLoss:   9000,
	WeeklyProfit:  5000,
	MonthlyProfit: 15000,
}

var testElig = EligibilityConfig{
	MinTrades:      20,
	MinWinRate:     0.55,
	MaxDrawdownPct: 0.05,
	AccountEquity:  100000,
}

func newTestGate(h *fakeHistory, store settings.Store) *Gate {
	var src history.Source
	if h != nil {
		src = h
	}
	g := NewGate(src, store, testLimits, testElig, util.NewLogger("error"))
	if h != nil {
		g.now = func() time.Time { return h.now }
	}
	return g
}

func TestCheckLimitsDailyBreachWinsFirst(t *testing.T) {
	h := &fakeHistory{now: time.Now(), daily: -1200, weekly: -1200, monthly: -1200}
	g := newTestGate(h, nil)

	report := g.CheckLimits(context.Background(), domain.ModePaper)

	assert.True(t, report.ShouldHalt)
	assert.Equal(t, ReasonDailyLoss, report.HaltReason)
	assert.True(t, report.DailyLossHit)
	// Weekly/monthly not independently breached (-1200 within 3000/9000).
	assert.False(t, report.WeeklyLossHit)
	assert.False(t, report.MonthlyLossHit)
	assert.InDelta(t, -1200, report.DailyPnL, 0.001)
}

func TestCheckLimitsWeeklyBreachWhenDailyFine(t *testing.T) {
	h := &fakeHistory{now: time.Now(), daily: -200, weekly: -3500, monthly: -3500}
	g := newTestGate(h, nil)

	report := g.CheckLimits(context.Background(), domain.ModePaper)

	assert.True(t, report.ShouldHalt)
	assert.Equal(t, ReasonWeeklyLoss, report.HaltReason)
	assert.False(t, report.DailyLossHit)
	assert.True(t, report.WeeklyLossHit)
}

func TestCheckLimitsExactLimitDoesNotHalt(t *testing.T) {
	h := &fakeHistory{now: time.Now(), daily: -1000}
	g := newTestGate(h, nil)

	report := g.CheckLimits(context.Background(), domain.ModePaper)
	assert.False(t, report.ShouldHalt, "breach requires P&L strictly below -limit")
}

func TestCheckLimitsNoHistoryFailsOpen(t *testing.T) {
	g := newTestGate(nil, nil)

	report := g.CheckLimits(context.Background(), domain.ModePaper)

	assert.False(t, report.ShouldHalt)
	assert.Zero(t, report.DailyPnL)
	assert.Zero(t, report.WeeklyPnL)
	assert.Zero(t, report.MonthlyPnL)
}

func TestCheckLimitsHistoryErrorFailsOpen(t *testing.T) {
	h := &fakeHistory{now: time.Now(), err: errors.New("repository down")}
	g := newTestGate(h, nil)

	report := g.CheckLimits(context.Background(), domain.ModePaper)
	assert.False(t, report.ShouldHalt)
	assert.Zero(t, report.DailyPnL)
}

func TestCheckLimitsOverrideFromSettings(t *testing.T) {
	h := &fakeHistory{now: time.Now(), daily: -600}
	store := settings.NewStatic(map[string]string{settings.KeyDailyLossLimit: "500"})
	g := newTestGate(h, store)

	report := g.CheckLimits(context.Background(), domain.ModePaper)
	assert.True(t, report.ShouldHalt)
	assert.Equal(t, ReasonDailyLoss, report.HaltReason)
}

func TestCheckLimitsMalformedOverrideCoercesToZero(t *testing.T) {
	// A non-numeric override means any loss breaches.
	h := &fakeHistory{now: time.Now(), daily: -0.01}
	store := settings.NewStatic(map[string]string{settings.KeyDailyLossLimit: "oops"})
	g := newTestGate(h, store)

	report := g.CheckLimits(context.Background(), domain.ModePaper)
	assert.True(t, report.ShouldHalt)
}

func TestCheckLimitsCelebration(t *testing.T) {
	h := &fakeHistory{now: time.Now(), daily: 800, weekly: 5200, monthly: 5200}
	g := newTestGate(h, nil)

	report := g.CheckLimits(context.Background(), domain.ModePaper)
	assert.False(t, report.ShouldHalt)
	assert.True(t, report.ShouldCelebrate)
	assert.Equal(t, "Weekly profit target reached", report.CelebrateReason)
}

func pnl(v float64) *float64 { return &v }

func TestCheckTradeRiskCombinedBreach(t *testing.T) {
	h := &fakeHistory{now: time.Now(), daily: -900, weekly: -900}
	g := newTestGate(h, nil)

	// -900 trailing plus -200 proposed = -1100, beyond the 1000 limit.
	result := g.CheckTradeRisk(context.Background(), ProposedTrade{Mode: domain.ModePaper, RealizedPnL: pnl(-200)})
	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reason, "daily")

	// -900 plus -50 = -950 stays inside the limit.
	result = g.CheckTradeRisk(context.Background(), ProposedTrade{Mode: domain.ModePaper, RealizedPnL: pnl(-50)})
	assert.True(t, result.Allowed)
}

func TestCheckTradeRiskWeeklyBreach(t *testing.T) {
	h := &fakeHistory{now: time.Now(), daily: -100, weekly: -2900}
	g := newTestGate(h, nil)

	result := g.CheckTradeRisk(context.Background(), ProposedTrade{Mode: domain.ModePaper, RealizedPnL: pnl(-200)})
	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reason, "weekly")
}

func TestCheckTradeRiskUnknownPnLAllowed(t *testing.T) {
	h := &fakeHistory{now: time.Now(), daily: -5000}
	g := newTestGate(h, nil)

	assert.True(t, g.CheckTradeRisk(context.Background(), ProposedTrade{Mode: domain.ModePaper}).Allowed)
	assert.True(t, g.CheckTradeRisk(context.Background(), ProposedTrade{RealizedPnL: pnl(-5000)}).Allowed)
}

func TestCheckTradeRiskHistoryErrorAllowed(t *testing.T) {
	h := &fakeHistory{now: time.Now(), err: errors.New("down")}
	g := newTestGate(h, nil)

	result := g.CheckTradeRisk(context.Background(), ProposedTrade{Mode: domain.ModePaper, RealizedPnL: pnl(-200)})
	assert.True(t, result.Allowed)
}

func TestGoLiveEligibilityAllPass(t *testing.T) {
	h := &fakeHistory{now: time.Now(), total: 40, wins: 25, drawdown: 3000}
	g := newTestGate(h, nil)

	result := g.CheckGoLiveEligibility(context.Background())
	assert.True(t, result.Eligible)
	assert.True(t, result.HasEnoughTrades)
	assert.True(t, result.WinRateOK)
	assert.True(t, result.DrawdownOK)
	assert.InDelta(t, 0.625, result.WinRate, 0.001)
	assert.InDelta(t, 0.03, result.DrawdownPct, 0.001)
}

func TestGoLiveEligibilityEachGateFlips(t *testing.T) {
	base := fakeHistory{now: time.Now(), total: 40, wins: 25, drawdown: 3000}

	tooFew := base
	tooFew.total, tooFew.wins = 19, 19
	lowWinRate := base
	lowWinRate.wins = 20 // 50%
	deepDrawdown := base
	deepDrawdown.drawdown = 6000 // 6% of 100k

	tests := []struct {
		name string
		h    fakeHistory
	}{
		{"too few trades", tooFew},
		{"low win rate", lowWinRate},
		{"deep drawdown", deepDrawdown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.h
			result := newTestGate(&h, nil).CheckGoLiveEligibility(context.Background())
			assert.False(t, result.Eligible)
		})
	}
}

func TestGoLiveEligibilityNoHistoryFailsClosed(t *testing.T) {
	g := newTestGate(nil, nil)
	assert.False(t, g.CheckGoLiveEligibility(context.Background()).Eligible)
}

func TestGoLiveEligibilityHistoryErrorFailsClosed(t *testing.T) {
	h := &fakeHistory{now: time.Now(), err: errors.New("down")}
	g := newTestGate(h, nil)
	assert.False(t, g.CheckGoLiveEligibility(context.Background()).Eligible)
}

func TestGoLiveEligibilityZeroDrawdownPasses(t *testing.T) {
	h := &fakeHistory{now: time.Now(), total: 40, wins: 25, drawdown: 0}
	g := newTestGate(h, nil)
	assert.True(t, g.CheckGoLiveEligibility(context.Background()).Eligible)
}
