// Package marlin provides a Go client for the operator API served by
// marlin-trader.
package marlin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"marlin/internal/bot"
	"marlin/internal/domain"
)

// Client talks to the operator API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the operator API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Status is the GET /api/bot/status response.
type Status struct {
	bot.Status
	Symbol     string   `json:"symbol"`
	Position   int64    `json:"position"`
	EntryPrice *float64 `json:"entry_price,omitempty"`
}

// CommandResult is the envelope returned by every bot command.
type CommandResult struct {
	OK      bool               `json:"ok"`
	State   bot.Status         `json:"state"`
	Command string             `json:"command,omitempty"`
	Error   string             `json:"error,omitempty"`
	Summary *domain.DaySummary `json:"summary,omitempty"`
}

// Stats is the GET /api/stats response.
type Stats struct {
	Mode          domain.TradeMode `json:"mode"`
	ClosedTrades  int              `json:"closed_trades"`
	WinningTrades int              `json:"winning_trades"`
	WinRate       float64          `json:"win_rate"`
	MaxDrawdown   float64          `json:"max_drawdown"`
	TradesToday   int              `json:"trades_today"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, e.Error)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// command posts a lifecycle command and decodes the result envelope. A
// non-2xx status still yields the decoded envelope so callers can inspect
// the echoed command and error.
func (c *Client) command(ctx context.Context, name string, body any) (CommandResult, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return CommandResult{}, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/bot/"+name, bytes.NewReader(payload))
	if err != nil {
		return CommandResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return CommandResult{}, err
	}
	defer resp.Body.Close()

	var result CommandResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return CommandResult{}, fmt.Errorf("POST /api/bot/%s: decoding response: %w", name, err)
	}
	return result, nil
}

// Start starts the bot in the given trading mode.
func (c *Client) Start(ctx context.Context, mode domain.TradeMode) (CommandResult, error) {
	return c.command(ctx, "start", map[string]string{"mode": string(mode)})
}

// Pause pauses the control loop.
func (c *Client) Pause(ctx context.Context) (CommandResult, error) {
	return c.command(ctx, "pause", nil)
}

// Resume resumes a paused loop.
func (c *Client) Resume(ctx context.Context) (CommandResult, error) {
	return c.command(ctx, "resume", nil)
}

// Stop stops the bot.
func (c *Client) Stop(ctx context.Context) (CommandResult, error) {
	return c.command(ctx, "stop", nil)
}

// EndOfDay triggers the end-of-day flatten and summary.
func (c *Client) EndOfDay(ctx context.Context) (CommandResult, error) {
	return c.command(ctx, "eod", nil)
}

// Status returns the bot state and open position.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var status Status
	err := c.get(ctx, "/api/bot/status", &status)
	return status, err
}

// Check runs the risk-limit sweep.
func (c *Client) Check(ctx context.Context) (domain.LimitReport, error) {
	var report domain.LimitReport
	err := c.get(ctx, "/api/check", &report)
	return report, err
}

// GoLive returns the go-live eligibility verdict.
func (c *Client) GoLive(ctx context.Context) (domain.EligibilityResult, error) {
	var elig domain.EligibilityResult
	err := c.get(ctx, "/api/golive", &elig)
	return elig, err
}

// Stats returns closed-trade statistics.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := c.get(ctx, "/api/stats", &stats)
	return stats, err
}
