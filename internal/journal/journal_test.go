package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marlin/internal/domain"
)

func sampleTrade(id string, pnl float64, closedAt time.Time) domain.ClosedTrade {
	return domain.ClosedTrade{
		ID:         id,
		Symbol:     "ES",
		Mode:       domain.ModePaper,
		Qty:        2,
		EntryPrice: 5000,
		ExitPrice:  5000 + pnl/2,
		PnL:        pnl,
		Reason:     "eod",
		ClosedAt:   closedAt,
	}
}

func TestWriteAndReadDay(t *testing.T) {
	j := New(t.TempDir())
	now := time.Now().UTC().Truncate(time.Millisecond)

	trades := []domain.ClosedTrade{
		sampleTrade("a", 120, now.Add(-2*time.Hour)),
		sampleTrade("b", -60, now.Add(-1*time.Hour)),
	}
	require.NoError(t, j.WriteDay("2026-08-31", trades))

	got, err := j.ReadDay("2026-08-31")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.InDelta(t, 120, got[0].PnL, 0.001)
	assert.Equal(t, domain.ModePaper, got[0].Mode)
	assert.True(t, got[0].ClosedAt.Equal(now.Add(-2*time.Hour)))
}

func TestWriteDayMergesByID(t *testing.T) {
	j := New(t.TempDir())
	now := time.Now().UTC()

	require.NoError(t, j.WriteDay("2026-08-31", []domain.ClosedTrade{sampleTrade("a", 100, now)}))
	// Rewriting the same ID plus a new one yields two records, incoming wins.
	require.NoError(t, j.WriteDay("2026-08-31", []domain.ClosedTrade{
		sampleTrade("a", 150, now),
		sampleTrade("c", -25, now.Add(time.Minute)),
	}))

	got, err := j.ReadDay("2026-08-31")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 150, got[0].PnL, 0.001)
}

func TestReadDayMissingFile(t *testing.T) {
	j := New(t.TempDir())
	got, err := j.ReadDay("1999-01-01")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteDayEmptyIsNoop(t *testing.T) {
	j := New(t.TempDir())
	require.NoError(t, j.WriteDay("2026-08-31", nil))

	days, err := j.ListDays()
	require.NoError(t, err)
	assert.Empty(t, days)
}

func TestListDays(t *testing.T) {
	j := New(t.TempDir())
	now := time.Now().UTC()

	require.NoError(t, j.WriteDay("2026-08-30", []domain.ClosedTrade{sampleTrade("a", 1, now)}))
	require.NoError(t, j.WriteDay("2026-08-28", []domain.ClosedTrade{sampleTrade("b", 1, now)}))

	days, err := j.ListDays()
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-08-28", "2026-08-30"}, days)
}
