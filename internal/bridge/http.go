package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"marlin/internal/domain"
)

// Compile-time interface check.
var _ Bridge = (*HTTPBridge)(nil)

// HTTPBridge talks JSON over HTTP to the execution service. Outbound calls
// share a token-bucket rate limiter so a hot tick loop cannot flood the
// bridge.
type HTTPBridge struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPBridge creates a client for the bridge at baseURL. perMinute bounds
// the outbound request rate.
func NewHTTPBridge(baseURL string, timeout time.Duration, perMinute int) *HTTPBridge {
	return &HTTPBridge{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute/4+1),
	}
}

func (b *HTTPBridge) get(ctx context.Context, path string, out any) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("bridge: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("bridge: GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Health probes GET /health.
func (b *HTTPBridge) Health(ctx context.Context) error {
	return b.get(ctx, "/health", nil)
}

// signalResponse is the bridge's GET /signal payload.
type signalResponse struct {
	Direction  string  `json:"direction"`
	Confidence float64 `json:"confidence"`
	Price      float64 `json:"price"`
	ExitSignal bool    `json:"exit_signal"`
}

// Signal fetches GET /signal. Unrecognised directions map to neutral.
func (b *HTTPBridge) Signal(ctx context.Context) (domain.Signal, error) {
	var resp signalResponse
	if err := b.get(ctx, "/signal", &resp); err != nil {
		return domain.Signal{}, err
	}

	dir := domain.DirectionNeutral
	switch strings.ToLower(resp.Direction) {
	case "long", "buy":
		dir = domain.DirectionLong
	case "short", "sell":
		dir = domain.DirectionShort
	}
	return domain.Signal{
		Direction:      dir,
		Confidence:     resp.Confidence,
		ReferencePrice: resp.Price,
		ExitRequested:  resp.ExitSignal,
	}, nil
}

// Account fetches GET /account.
func (b *HTTPBridge) Account(ctx context.Context) (domain.Account, error) {
	var acct domain.Account
	if err := b.get(ctx, "/account", &acct); err != nil {
		return domain.Account{}, err
	}
	return acct, nil
}

// orderRequest is the bridge's POST /order payload.
type orderRequest struct {
	OrderID  string  `json:"order_id"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Quantity int64   `json:"quantity"`
	Price    float64 `json:"price"`
}

// orderResponse is the bridge's fill confirmation.
type orderResponse struct {
	OrderID   string  `json:"order_id"`
	FilledQty int64   `json:"filled_qty"`
	FillPrice float64 `json:"fill_price"`
	Error     string  `json:"error,omitempty"`
}

// PlaceOrder submits POST /order and returns the confirmed fill. A 4xx
// status surfaces as ErrRejected; transport and 5xx errors are transient.
func (b *HTTPBridge) PlaceOrder(ctx context.Context, order domain.Order) (domain.Fill, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return domain.Fill{}, err
	}

	payload, err := json.Marshal(orderRequest{
		OrderID:  order.ID,
		Symbol:   order.Symbol,
		Side:     string(order.Side),
		Quantity: order.Qty,
		Price:    order.Price,
	})
	if err != nil {
		return domain.Fill{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/order", bytes.NewReader(payload))
	if err != nil {
		return domain.Fill{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return domain.Fill{}, fmt.Errorf("bridge: POST /order: %w", err)
	}
	defer resp.Body.Close()

	var fill orderResponse
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		_ = json.NewDecoder(resp.Body).Decode(&fill)
		return domain.Fill{}, fmt.Errorf("%w: %s", ErrRejected, fill.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Fill{}, fmt.Errorf("bridge: POST /order: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&fill); err != nil {
		return domain.Fill{}, fmt.Errorf("bridge: decoding fill: %w", err)
	}

	return domain.Fill{
		OrderID:  fill.OrderID,
		Symbol:   order.Symbol,
		Side:     order.Side,
		Qty:      fill.FilledQty,
		Price:    fill.FillPrice,
		FilledAt: time.Now().UTC(),
	}, nil
}
