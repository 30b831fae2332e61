package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marlin/internal/domain"
)

func newTestBridge(t *testing.T, handler http.Handler) *HTTPBridge {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPBridge(srv.URL, 2*time.Second, 6000)
}

func TestHTTPBridgeSignal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /signal", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"direction":   "LONG",
			"confidence":  0.82,
			"price":       5123.25,
			"exit_signal": false,
		})
	})
	b := newTestBridge(t, mux)

	sig, err := b.Signal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionLong, sig.Direction)
	assert.InDelta(t, 0.82, sig.Confidence, 0.001)
	assert.InDelta(t, 5123.25, sig.ReferencePrice, 0.001)
	assert.False(t, sig.ExitRequested)
}

func TestHTTPBridgeSignalUnknownDirectionIsNeutral(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /signal", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"direction": "sideways", "confidence": 0.9})
	})
	b := newTestBridge(t, mux)

	sig, err := b.Signal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionNeutral, sig.Direction)
}

func TestHTTPBridgeHealth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	b := newTestBridge(t, mux)
	assert.NoError(t, b.Health(context.Background()))
}

func TestHTTPBridgeHealthDown(t *testing.T) {
	b := newTestBridge(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	assert.Error(t, b.Health(context.Background()))
}

func TestHTTPBridgeAccount(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /account", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"available_margin": 25000.5})
	})
	b := newTestBridge(t, mux)

	acct, err := b.Account(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 25000.5, acct.AvailableMargin, 0.001)
}

func TestHTTPBridgePlaceOrder(t *testing.T) {
	var got orderRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /order", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{
			"order_id":   got.OrderID,
			"filled_qty": got.Quantity,
			"fill_price": 5124.0,
		})
	})
	b := newTestBridge(t, mux)

	fill, err := b.PlaceOrder(context.Background(), domain.Order{
		ID:     "ord-1",
		Symbol: "ES",
		Side:   domain.SideBuy,
		Qty:    2,
		Price:  5123.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", got.OrderID)
	assert.Equal(t, "buy", got.Side)
	assert.Equal(t, "ord-1", fill.OrderID)
	assert.Equal(t, int64(2), fill.Qty)
	assert.InDelta(t, 5124.0, fill.Price, 0.001)
	assert.Equal(t, domain.SideBuy, fill.Side)
}

func TestHTTPBridgePlaceOrderRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /order", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{"error": "insufficient margin"})
	})
	b := newTestBridge(t, mux)

	_, err := b.PlaceOrder(context.Background(), domain.Order{Symbol: "ES", Side: domain.SideBuy, Qty: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Contains(t, err.Error(), "insufficient margin")
}

func TestHTTPBridgePlaceOrderServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /order", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	b := newTestBridge(t, mux)

	_, err := b.PlaceOrder(context.Background(), domain.Order{Symbol: "ES", Side: domain.SideSell, Qty: 1})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRejected))
}

func TestSimulatorFillsAtOrderPrice(t *testing.T) {
	sim := NewSimulator()

	fill, err := sim.PlaceOrder(context.Background(), domain.Order{
		ID: "o1", Symbol: "ES", Side: domain.SideBuy, Qty: 3, Price: 5000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), fill.Qty)
	assert.InDelta(t, 5000, fill.Price, 0.001)
	assert.Len(t, sim.Fills(), 1)
	assert.Len(t, sim.Orders(), 1)
}

func TestSimulatorFailNext(t *testing.T) {
	sim := NewSimulator()
	boom := errors.New("link down")
	sim.FailNext(2, boom)

	order := domain.Order{Symbol: "ES", Side: domain.SideBuy, Qty: 1, Price: 5000}
	_, err := sim.PlaceOrder(context.Background(), order)
	assert.ErrorIs(t, err, boom)
	_, err = sim.PlaceOrder(context.Background(), order)
	assert.ErrorIs(t, err, boom)

	_, err = sim.PlaceOrder(context.Background(), order)
	assert.NoError(t, err)
	assert.Len(t, sim.Orders(), 3)
	assert.Len(t, sim.Fills(), 1)
}

func TestSimulatorReject(t *testing.T) {
	sim := NewSimulator()
	sim.RejectOrders(true)

	_, err := sim.PlaceOrder(context.Background(), domain.Order{Symbol: "ES", Side: domain.SideBuy, Qty: 1})
	assert.ErrorIs(t, err, ErrRejected)

	sim.RejectOrders(false)
	_, err = sim.PlaceOrder(context.Background(), domain.Order{Symbol: "ES", Side: domain.SideBuy, Qty: 1, Price: 1})
	assert.NoError(t, err)
}

func TestSimulatorSignalAndAccount(t *testing.T) {
	sim := NewSimulator()
	sim.SetSignal(domain.Signal{Direction: domain.DirectionShort, Confidence: 0.7, ReferencePrice: 4990})
	sim.SetAccount(domain.Account{AvailableMargin: 500})

	sig, err := sim.Signal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionShort, sig.Direction)

	acct, err := sim.Account(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 500, acct.AvailableMargin, 0.001)
}
