// Package bridge defines the client interface to the external execution
// service that serves signals, account state, and order execution, and
// provides an HTTP implementation plus an in-memory simulator.
package bridge

import (
	"context"
	"errors"

	"marlin/internal/domain"
)

// ErrRejected is returned when the bridge accepted the request but refused
// the order (insufficient margin, unknown symbol). Rejections are not
// transient and must not be retried.
var ErrRejected = errors.New("order rejected by bridge")

// Bridge abstracts the execution service.
type Bridge interface {
	// Health probes connectivity.
	Health(ctx context.Context) error

	// Signal returns the current directional signal for the configured
	// instrument.
	Signal(ctx context.Context) (domain.Signal, error)

	// Account returns the account snapshot (available margin).
	Account(ctx context.Context) (domain.Account, error)

	// PlaceOrder submits an order and returns the fill confirmation.
	PlaceOrder(ctx context.Context, order domain.Order) (domain.Fill, error)
}
