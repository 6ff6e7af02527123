package store

import (
	"context"

	"github.com/labstack/echo/v4"
)

// Notifier delivers one committed event to whoever should hear about it.
// Delivery is best effort: a returned error is logged by the dispatcher
// and never reaches the caller that triggered the commit.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NoOpNotifier swallows events. Useful for jobs and tests that do not
// care about fan-out.
type NoOpNotifier struct{}

func (NoOpNotifier) Notify(ctx context.Context, event Event) error { return nil }

// LogNotifier writes events to the server log instead of publishing
// them anywhere.
type LogNotifier struct {
	Logger echo.Logger
}

func (n LogNotifier) Notify(ctx context.Context, event Event) error {
	n.Logger.Infof("event %s: %+v", event.EventName(), event)
	return nil
}
