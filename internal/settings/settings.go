// Package settings provides the key/value override store consulted by the
// risk gate before falling back to configured defaults. Values are stored
// as raw strings; parsing (and the conservative handling of malformed
// values) is the caller's concern.
package settings

import (
	"context"
	"sync"
)

// Store is a key/value override lookup. The boolean reports whether the key
// has an override at all; absent keys are not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Static is an in-memory Store, used in tests and as the fallback when no
// database is configured.
type Static struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStatic creates a Static store seeded with the given values (may be nil).
func NewStatic(values map[string]string) *Static {
	m := make(map[string]string, len(values))
	for k, v := range values {
		m[k] = v
	}
	return &Static{values: m}
}

// Get returns the override for key, if any.
func (s *Static) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores an override.
func (s *Static) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}

// Delete removes an override.
func (s *Static) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

// Well-known risk limit keys.
const (
	KeyDailyLossLimit     = "risk.daily_loss_limit"
	KeyWeeklyLossLimit    = "risk.weekly_loss_limit"
	KeyMonthlyLossLimit   = "risk.monthly_loss_limit"
	KeyWeeklyProfitLimit  = "risk.weekly_profit_limit"
	KeyMonthlyProfitLimit = "risk.monthly_profit_limit"
)
