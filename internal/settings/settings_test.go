package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticStore(t *testing.T) {
	ctx := context.Background()
	s := NewStatic(map[string]string{KeyDailyLossLimit: "750"})

	v, ok, err := s.Get(ctx, KeyDailyLossLimit)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "750", v)

	_, ok, err = s.Get(ctx, KeyWeeklyLossLimit)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyWeeklyLossLimit, "2000"))
	v, ok, _ = s.Get(ctx, KeyWeeklyLossLimit)
	assert.True(t, ok)
	assert.Equal(t, "2000", v)

	require.NoError(t, s.Delete(ctx, KeyWeeklyLossLimit))
	_, ok, _ = s.Get(ctx, KeyWeeklyLossLimit)
	assert.False(t, ok)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Get(ctx, KeyDailyLossLimit)
	require.NoError(t, err)
	assert.False(t, ok, "fresh store has no overrides")

	require.NoError(t, s.Set(ctx, KeyDailyLossLimit, "900"))
	v, ok, err := s.Get(ctx, KeyDailyLossLimit)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "900", v)

	// Upsert replaces.
	require.NoError(t, s.Set(ctx, KeyDailyLossLimit, "1100"))
	v, _, _ = s.Get(ctx, KeyDailyLossLimit)
	assert.Equal(t, "1100", v)

	require.NoError(t, s.Delete(ctx, KeyDailyLossLimit))
	_, ok, _ = s.Get(ctx, KeyDailyLossLimit)
	assert.False(t, ok)
}
