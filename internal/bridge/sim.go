package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"marlin/internal/domain"
)

var _ Bridge = (*Simulator)(nil)

// Simulator is an in-memory Bridge for paper trading and tests. Every order
// fills in full at the order price (or the current signal reference price
// when the order carries none). FailNext queues transient errors to exercise
// retry paths.
type Simulator struct {
	mu sync.Mutex

	signal  domain.Signal
	account domain.Account
	orders  []domain.Order
	fills   []domain.Fill

	failures int
	failErr  error
	reject   bool
}

// NewSimulator creates a simulator with a neutral signal and ample margin.
func NewSimulator() *Simulator {
	return &Simulator{
		signal:  domain.Signal{Direction: domain.DirectionNeutral},
		account: domain.Account{AvailableMargin: 1_000_000},
	}
}

// SetSignal replaces the signal returned by Signal.
func (s *Simulator) SetSignal(sig domain.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signal = sig
}

// SetAccount replaces the account snapshot.
func (s *Simulator) SetAccount(acct domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = acct
}

// FailNext makes the next n PlaceOrder calls fail with err.
func (s *Simulator) FailNext(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		err = errors.New("simulated bridge failure")
	}
	s.failures = n
	s.failErr = err
}

// RejectOrders makes PlaceOrder return ErrRejected until disabled.
func (s *Simulator) RejectOrders(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject = reject
}

// Orders returns a copy of every order received, including failed attempts.
func (s *Simulator) Orders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// Fills returns a copy of every confirmed fill.
func (s *Simulator) Fills() []domain.Fill {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Fill, len(s.fills))
	copy(out, s.fills)
	return out
}

func (s *Simulator) Health(ctx context.Context) error {
	return ctx.Err()
}

func (s *Simulator) Signal(ctx context.Context) (domain.Signal, error) {
	if err := ctx.Err(); err != nil {
		return domain.Signal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signal, nil
}

func (s *Simulator) Account(ctx context.Context) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account, nil
}

func (s *Simulator) PlaceOrder(ctx context.Context, order domain.Order) (domain.Fill, error) {
	if err := ctx.Err(); err != nil {
		return domain.Fill{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = append(s.orders, order)

	if s.failures > 0 {
		s.failures--
		return domain.Fill{}, s.failErr
	}
	if s.reject {
		return domain.Fill{}, ErrRejected
	}

	price := order.Price
	if price == 0 {
		price = s.signal.ReferencePrice
	}
	id := order.ID
	if id == "" {
		id = uuid.NewString()
	}
	fill := domain.Fill{
		OrderID:  id,
		Symbol:   order.Symbol,
		Side:     order.Side,
		Qty:      order.Qty,
		Price:    price,
		FilledAt: time.Now().UTC(),
	}
	s.fills = append(s.fills, fill)
	return fill, nil
}
