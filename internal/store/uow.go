package store

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// UnitOfWork is the atomic write scope of one business operation. The
// write path stages its inserts through DB() and records a matching
// event for every row that should be announced after commit. The buffer
// belongs to this unit of work alone; it is drained exactly once,
// whether or not dispatch succeeds.
type UnitOfWork struct {
	tx     *gorm.DB
	events []Event
}

// DB exposes the transaction the unit of work runs in.
func (u *UnitOfWork) DB() *gorm.DB {
	return u.tx
}

// Record buffers an event for post-commit dispatch. It performs no
// write of its own.
func (u *UnitOfWork) Record(event Event) {
	u.events = append(u.events, event)
}

func (u *UnitOfWork) drain() []Event {
	events := u.events
	u.events = nil
	return events
}

// Runner owns the commit/dispatch cycle: it runs the business operation
// inside a transaction, and once the commit succeeds hands any buffered
// events to the notifier on a detached goroutine.
type Runner struct {
	db       *gorm.DB
	notifier Notifier
	logger   echo.Logger
}

func NewRunner(db *gorm.DB, notifier Notifier, logger echo.Logger) *Runner {
	if notifier == nil {
		notifier = NoOpNotifier{}
	}
	return &Runner{db: db, notifier: notifier, logger: logger}
}

// Run executes fn inside a transaction. On rollback the buffered events
// are discarded. On commit with a non-empty buffer, dispatch happens on
// its own goroutine with its own context, so it neither blocks the
// caller nor dies with the request's cancellation. The buffer is
// cleared unconditionally either way, so reusing a unit of work can
// never re-deliver stale entries.
func (r *Runner) Run(ctx context.Context, fn func(uow *UnitOfWork) error) error {
	uow := &UnitOfWork{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		uow.tx = tx
		return fn(uow)
	})

	events := uow.drain()
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	go r.dispatch(events)
	return nil
}

// dispatch attempts delivery of every event. A failure on one event is
// logged and captured but never blocks the remaining events, and it is
// never retried: delivery is connection-scoped and at most once.
func (r *Runner) dispatch(events []Event) {
	ctx := context.Background()
	for _, event := range events {
		if err := r.notifier.Notify(ctx, event); err != nil {
			if r.logger != nil {
				r.logger.Warnf("dispatch %s failed: %v", event.EventName(), err)
			}
			sentry.CaptureException(err)
		}
	}
}
