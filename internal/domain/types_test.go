package domain

import "testing"

func TestSignalSide(t *testing.T) {
	tests := []struct {
		dir    Direction
		side   OrderSide
		hasOne bool
	}{
		{DirectionLong, SideBuy, true},
		{DirectionShort, SideSell, true},
		{DirectionNeutral, "", false},
		{Direction("garbage"), "", false},
	}
	for _, tt := range tests {
		side, ok := Signal{Direction: tt.dir}.Side()
		if ok != tt.hasOne {
			t.Errorf("Side() for %q: ok = %v, want %v", tt.dir, ok, tt.hasOne)
		}
		if side != tt.side {
			t.Errorf("Side() for %q = %q, want %q", tt.dir, side, tt.side)
		}
	}
}

func TestOrderSignedQty(t *testing.T) {
	if got := (Order{Side: SideBuy, Qty: 5}).SignedQty(); got != 5 {
		t.Errorf("buy SignedQty = %d, want 5", got)
	}
	if got := (Order{Side: SideSell, Qty: 5}).SignedQty(); got != -5 {
		t.Errorf("sell SignedQty = %d, want -5", got)
	}
}

func TestClassifyDay(t *testing.T) {
	tests := []struct {
		realized float64
		want     DayClass
	}{
		{1500, DayExceptional},
		{1000, DayExceptional},
		{999.99, DayProfitable},
		{0.01, DayProfitable},
		{0, DayLoss},
		{-250, DayLoss},
	}
	for _, tt := range tests {
		if got := ClassifyDay(tt.realized, 1000); got != tt.want {
			t.Errorf("ClassifyDay(%v) = %q, want %q", tt.realized, got, tt.want)
		}
	}
}
