// Package bot holds the operational state machine that gates the control
// loop: running/paused/stopped plus the sticky emergency-halt flag.
package bot

import (
	"errors"
	"fmt"
	"sync"

	"marlin/internal/domain"
)

// ErrInvalidTransition is returned for a disallowed state change. The bot
// state is left untouched.
var ErrInvalidTransition = errors.New("invalid state transition")

// Status is a consistent snapshot of the lifecycle.
type Status struct {
	State      domain.BotState  `json:"state"`
	Mode       domain.TradeMode `json:"mode"`
	Halted     bool             `json:"emergency_halt"`
	HaltReason string           `json:"halt_reason,omitempty"`
}

// Lifecycle is the bot state machine. The emergency-halt flag is orthogonal
// to the state: it blocks new entries regardless of state and survives
// pause/resume, cleared only by an explicit Start.
type Lifecycle struct {
	mu         sync.RWMutex
	state      domain.BotState
	mode       domain.TradeMode
	halted     bool
	haltReason string
}

// New creates a lifecycle in the running state with the given mode.
func New(mode domain.TradeMode) *Lifecycle {
	return &Lifecycle{state: domain.StateRunning, mode: mode}
}

// allowed is the single transition table. Every state change goes through it.
func allowed(from, to domain.BotState) bool {
	switch from {
	case domain.StateRunning:
		return to == domain.StatePaused || to == domain.StateStopped
	case domain.StatePaused:
		return to == domain.StateRunning || to == domain.StateStopped
	case domain.StateStopped:
		return to == domain.StateRunning
	}
	return false
}

func (l *Lifecycle) transition(to domain.BotState) error {
	if !allowed(l.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.state, to)
	}
	l.state = to
	return nil
}

// Start moves STOPPED to RUNNING with the given trading mode and clears the
// emergency halt. It is the only way to clear the halt flag.
func (l *Lifecycle) Start(mode domain.TradeMode) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.transition(domain.StateRunning); err != nil {
		return err
	}
	l.mode = mode
	l.halted = false
	l.haltReason = ""
	return nil
}

// Pause moves RUNNING to PAUSED.
func (l *Lifecycle) Pause() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transition(domain.StatePaused)
}

// Resume moves PAUSED back to RUNNING. It does not clear an emergency halt.
func (l *Lifecycle) Resume() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != domain.StatePaused {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.state, domain.StateRunning)
	}
	return l.transition(domain.StateRunning)
}

// Stop moves RUNNING or PAUSED to STOPPED.
func (l *Lifecycle) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transition(domain.StateStopped)
}

// EmergencyHalt raises the sticky halt flag. The first reason wins until the
// flag is cleared by Start.
func (l *Lifecycle) EmergencyHalt(reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.halted {
		l.halted = true
		l.haltReason = reason
	}
}

// State returns the current state.
func (l *Lifecycle) State() domain.BotState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Mode returns the trading mode set by the last Start.
func (l *Lifecycle) Mode() domain.TradeMode {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.mode
}

// Halted reports the emergency-halt flag and its reason.
func (l *Lifecycle) Halted() (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.haltReason, l.halted
}

// CanTrade reports whether the loop may evaluate new entries.
func (l *Lifecycle) CanTrade() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == domain.StateRunning && !l.halted
}

// Snapshot returns a consistent view of state, mode, and halt flag.
func (l *Lifecycle) Snapshot() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Status{State: l.state, Mode: l.mode, Halted: l.halted, HaltReason: l.haltReason}
}
