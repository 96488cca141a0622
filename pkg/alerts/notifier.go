// Package alerts abstracts the platform alerting capability. Delivery is
// always best effort: a notifier that cannot deliver returns an error, and
// callers log and continue.
package alerts

import (
	"context"

	"github.com/mechflow/mechflow-backend/pkg/logger"
)

// Notifier shows a short alert to whoever is watching the host environment.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Noop is the implementation for environments without an alerting
// capability.
type Noop struct{}

func (Noop) Notify(context.Context, string, string) error { return nil }

// Log writes alerts into the structured log.
type Log struct {
	logg *logger.Logger
}

// NewLog returns a notifier backed by the given logger.
func NewLog(logg *logger.Logger) *Log {
	return &Log{logg: logg}
}

func (l *Log) Notify(ctx context.Context, title, body string) error {
	if l.logg == nil {
		return nil
	}
	ctx = l.logg.WithFields(ctx, map[string]any{
		"alert_title": title,
		"alert_body":  body,
	})
	l.logg.Info(ctx, "alerts.delivered")
	return nil
}

// FromMode maps a config mode to an implementation, defaulting to Noop.
func FromMode(mode string, logg *logger.Logger) Notifier {
	if mode == "log" {
		return NewLog(logg)
	}
	return Noop{}
}
