package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Embed colors per severity.
const (
	colorInfo     = 0x2ecc71
	colorWarn     = 0xf1c40f
	colorCritical = 0xe74c3c
)

// Discord posts notifications to a Discord webhook as embeds. An empty
// webhook URL disables it.
type Discord struct {
	webhookURL string
	client     *http.Client
	log        *slog.Logger
}

func NewDiscord(webhookURL string, log *slog.Logger) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

func (d *Discord) Notify(ctx context.Context, severity Severity, title, message string) {
	if d.webhookURL == "" {
		return
	}
	if err := d.send(ctx, severity, title, message); err != nil {
		d.log.Warn("discord notification failed", "title", title, "error", err)
	}
}

func (d *Discord) send(ctx context.Context, severity Severity, title, message string) error {
	color := colorInfo
	switch severity {
	case SeverityWarn:
		color = colorWarn
	case SeverityCritical:
		color = colorCritical
	}

	payload := map[string]any{
		"embeds": []map[string]any{
			{
				"title":       title,
				"description": message,
				"color":       color,
				"timestamp":   time.Now().Format(time.RFC3339),
			},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("discord returned status %d", resp.StatusCode)
	}
	return nil
}
