// Package domain defines the core types shared across the trading system:
// signals, orders, fills, closed trades, and the reports produced by the
// risk gate. Types here are pure data and perform no I/O.
package domain

import "time"

// Direction is the directional bias of a signal.
type Direction string

const (
	DirectionLong    Direction = "long"
	DirectionShort   Direction = "short"
	DirectionNeutral Direction = "neutral"
)

// TradeMode distinguishes paper (simulated capital) from live trading.
type TradeMode string

const (
	ModePaper TradeMode = "paper"
	ModeLive  TradeMode = "live"
)

// OrderSide is the side of an order sent to the execution bridge.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// Signal is one reading from the external signal source. It is immutable
// once read; the control loop never mutates it.
type Signal struct {
	Direction      Direction `json:"direction"`
	Confidence     float64   `json:"confidence"` // in [0, 1]
	ReferencePrice float64   `json:"reference_price"`
	ExitRequested  bool      `json:"exit_requested"`
}

// Side maps the signal direction onto an order side. Neutral signals have
// no side; the second return value reports whether one exists.
func (s Signal) Side() (OrderSide, bool) {
	switch s.Direction {
	case DirectionLong:
		return SideBuy, true
	case DirectionShort:
		return SideSell, true
	}
	return "", false
}

// Order is a request submitted to the execution bridge.
type Order struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Side        OrderSide `json:"side"`
	Qty         int64     `json:"quantity"`
	Price       float64   `json:"price"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SignedQty returns the order quantity signed by side (buys positive,
// sells negative).
func (o Order) SignedQty() int64 {
	if o.Side == SideSell {
		return -o.Qty
	}
	return o.Qty
}

// Fill is a confirmed execution reported by the bridge.
type Fill struct {
	OrderID  string    `json:"order_id"`
	Symbol   string    `json:"symbol"`
	Side     OrderSide `json:"side"`
	Qty      int64     `json:"quantity"`
	Price    float64   `json:"price"`
	FilledAt time.Time `json:"filled_at"`
}

// ClosedTrade is a fully realized round trip recorded to the trade history.
type ClosedTrade struct {
	ID         string
	Symbol     string
	Mode       TradeMode
	Qty        int64 // signed: the position that was closed
	EntryPrice float64
	ExitPrice  float64
	PnL        float64 // realized, account currency
	Reason     string
	ClosedAt   time.Time
}

// Account is a snapshot of the trading account at the bridge.
type Account struct {
	AvailableMargin float64 `json:"available_margin"`
}

// BotState is the operational state of the control loop.
type BotState string

const (
	StateRunning BotState = "running"
	StatePaused  BotState = "paused"
	StateStopped BotState = "stopped"
)

// LimitReport is the result of a periodic risk-limit sweep.
type LimitReport struct {
	ShouldHalt      bool    `json:"should_halt"`
	HaltReason      string  `json:"halt_reason,omitempty"`
	ShouldCelebrate bool    `json:"should_celebrate"`
	CelebrateReason string  `json:"celebrate_reason,omitempty"`
	DailyPnL        float64 `json:"daily_pnl"`
	WeeklyPnL       float64 `json:"weekly_pnl"`
	MonthlyPnL      float64 `json:"monthly_pnl"`
	DailyLossHit    bool    `json:"daily_loss_hit"`
	WeeklyLossHit   bool    `json:"weekly_loss_hit"`
	MonthlyLossHit  bool    `json:"monthly_loss_hit"`
	TradesToday     int     `json:"trades_today"`
}

// TradeRiskResult is the verdict of the pre-trade risk check.
type TradeRiskResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// EligibilityResult is the go-live promotion verdict. All three component
// checks must hold for Eligible to be true.
type EligibilityResult struct {
	Eligible        bool    `json:"eligible"`
	HasEnoughTrades bool    `json:"has_enough_trades"`
	WinRateOK       bool    `json:"win_rate_ok"`
	DrawdownOK      bool    `json:"drawdown_ok"`
	ClosedTrades    int     `json:"closed_trades"`
	WinRate         float64 `json:"win_rate"`
	DrawdownPct     float64 `json:"drawdown_pct"`
}

// DayClass classifies a trading day by realized P&L.
type DayClass string

const (
	DayLoss        DayClass = "loss"
	DayProfitable  DayClass = "profitable"
	DayExceptional DayClass = "exceptional"
)

// DaySummary is emitted by the end-of-day task after flattening.
type DaySummary struct {
	Date     string   `json:"date"` // YYYY-MM-DD
	Realized float64  `json:"realized"`
	Trades   int      `json:"trades"`
	Class    DayClass `json:"class"`
}

// ClassifyDay buckets realized day P&L using the exceptional threshold.
func ClassifyDay(realized, exceptional float64) DayClass {
	switch {
	case realized >= exceptional:
		return DayExceptional
	case realized > 0:
		return DayProfitable
	default:
		return DayLoss
	}
}
