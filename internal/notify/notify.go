// Package notify delivers operator-facing event notifications: halts,
// execution failures, end-of-day summaries, milestone celebrations.
package notify

import (
	"context"
	"log/slog"
)

// Severity selects message styling for sinks that support it.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarn     Severity = "warn"
	SeverityCritical Severity = "critical"
)

// Notifier is a fire-and-forget notification sink. Implementations must not
// block the control loop; delivery failures are logged, never propagated.
type Notifier interface {
	Notify(ctx context.Context, severity Severity, title, message string)
}

// Noop discards all notifications.
type Noop struct{}

func (Noop) Notify(context.Context, Severity, string, string) {}

// LogNotifier writes notifications to the structured log. It is the default
// sink when no webhook is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, severity Severity, title, message string) {
	switch severity {
	case SeverityCritical:
		n.log.Error("notification", "title", title, "message", message)
	case SeverityWarn:
		n.log.Warn("notification", "title", title, "message", message)
	default:
		n.log.Info("notification", "title", title, "message", message)
	}
}

// Multi fans a notification out to several sinks.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, severity Severity, title, message string) {
	for _, n := range m {
		n.Notify(ctx, severity, title, message)
	}
}
