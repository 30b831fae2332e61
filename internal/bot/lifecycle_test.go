package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marlin/internal/domain"
)

func TestInitialStateIsRunning(t *testing.T) {
	l := New(domain.ModePaper)
	assert.Equal(t, domain.StateRunning, l.State())
	assert.Equal(t, domain.ModePaper, l.Mode())
	assert.True(t, l.CanTrade())
}

func TestFullTransitionSequence(t *testing.T) {
	l := New(domain.ModePaper)

	require.NoError(t, l.Pause())
	assert.Equal(t, domain.StatePaused, l.State())

	require.NoError(t, l.Resume())
	assert.Equal(t, domain.StateRunning, l.State())

	require.NoError(t, l.Stop())
	assert.Equal(t, domain.StateStopped, l.State())

	require.NoError(t, l.Start(domain.ModeLive))
	assert.Equal(t, domain.StateRunning, l.State())
	assert.Equal(t, domain.ModeLive, l.Mode())
}

func TestInvalidTransitions(t *testing.T) {
	l := New(domain.ModePaper)

	// Resume while running.
	assert.ErrorIs(t, l.Resume(), ErrInvalidTransition)

	require.NoError(t, l.Stop())
	// Stopped is terminal until Start.
	assert.ErrorIs(t, l.Pause(), ErrInvalidTransition)
	assert.ErrorIs(t, l.Resume(), ErrInvalidTransition)
	assert.ErrorIs(t, l.Stop(), ErrInvalidTransition)
	assert.Equal(t, domain.StateStopped, l.State())
}

func TestPauseOnlyFromRunning(t *testing.T) {
	l := New(domain.ModePaper)
	require.NoError(t, l.Pause())
	assert.ErrorIs(t, l.Pause(), ErrInvalidTransition)
}

func TestEmergencyHaltSurvivesResume(t *testing.T) {
	l := New(domain.ModePaper)
	l.EmergencyHalt("Daily loss limit")

	reason, halted := l.Halted()
	require.True(t, halted)
	assert.Equal(t, "Daily loss limit", reason)
	assert.False(t, l.CanTrade())

	require.NoError(t, l.Pause())
	require.NoError(t, l.Resume())
	_, halted = l.Halted()
	assert.True(t, halted, "resume must not clear the halt")
	assert.False(t, l.CanTrade())
}

func TestStartClearsEmergencyHalt(t *testing.T) {
	l := New(domain.ModePaper)
	l.EmergencyHalt("Weekly loss limit")
	require.NoError(t, l.Stop())

	require.NoError(t, l.Start(domain.ModePaper))
	_, halted := l.Halted()
	assert.False(t, halted)
	assert.True(t, l.CanTrade())
}

func TestFirstHaltReasonWins(t *testing.T) {
	l := New(domain.ModePaper)
	l.EmergencyHalt("Daily loss limit")
	l.EmergencyHalt("Weekly loss limit")

	reason, _ := l.Halted()
	assert.Equal(t, "Daily loss limit", reason)
}

func TestSnapshot(t *testing.T) {
	l := New(domain.ModeLive)
	l.EmergencyHalt("Monthly loss limit")

	s := l.Snapshot()
	assert.Equal(t, domain.StateRunning, s.State)
	assert.Equal(t, domain.ModeLive, s.Mode)
	assert.True(t, s.Halted)
	assert.Equal(t, "Monthly loss limit", s.HaltReason)
}
