package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type record struct {
	ID    string `gorm:"primaryKey"`
	Value string
}

var testDBSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:store_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true, Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&record{}))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})
	return db
}

// captureNotifier forwards every delivered event to a channel so tests
// can wait for the detached dispatch goroutine.
type captureNotifier struct {
	delivered chan Event
	fail      bool
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{delivered: make(chan Event, 16)}
}

func (n *captureNotifier) Notify(ctx context.Context, event Event) error {
	n.delivered <- event
	if n.fail {
		return errors.New("delivery failed")
	}
	return nil
}

func (n *captureNotifier) waitFor(t *testing.T, count int) []Event {
	t.Helper()
	events := make([]Event, 0, count)
	for len(events) < count {
		select {
		case e := <-n.delivered:
			events = append(events, e)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d of %d", len(events)+1, count)
		}
	}
	return events
}

func (n *captureNotifier) assertNoDelivery(t *testing.T) {
	t.Helper()
	select {
	case e := <-n.delivered:
		t.Fatalf("unexpected delivery of %s", e.EventName())
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRun_CommitDispatchesEveryRecordedEvent(t *testing.T) {
	db := newTestDB(t)
	notifier := newCaptureNotifier()
	runner := NewRunner(db, notifier, nil)

	err := runner.Run(context.Background(), func(uow *UnitOfWork) error {
		for i := 0; i < 3; i++ {
			if err := uow.DB().Create(&record{ID: fmt.Sprintf("r%d", i)}).Error; err != nil {
				return err
			}
			uow.Record(FeedbackCreated{FeedbackID: fmt.Sprintf("r%d", i)})
		}
		return nil
	})
	require.NoError(t, err)

	events := notifier.waitFor(t, 3)
	seen := make(map[string]bool)
	for _, e := range events {
		seen[e.(FeedbackCreated).FeedbackID] = true
	}
	assert.Len(t, seen, 3)

	var count int64
	require.NoError(t, db.Model(&record{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestRun_RollbackDropsEventsAndRows(t *testing.T) {
	db := newTestDB(t)
	notifier := newCaptureNotifier()
	runner := NewRunner(db, notifier, nil)

	boom := errors.New("boom")
	err := runner.Run(context.Background(), func(uow *UnitOfWork) error {
		if err := uow.DB().Create(&record{ID: "r1"}).Error; err != nil {
			return err
		}
		uow.Record(FeedbackCreated{FeedbackID: "r1"})
		return boom
	})
	require.ErrorIs(t, err, boom)

	notifier.assertNoDelivery(t)

	var count int64
	require.NoError(t, db.Model(&record{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRun_NoEventsNoDispatch(t *testing.T) {
	db := newTestDB(t)
	notifier := newCaptureNotifier()
	runner := NewRunner(db, notifier, nil)

	err := runner.Run(context.Background(), func(uow *UnitOfWork) error {
		return uow.DB().Create(&record{ID: "r1"}).Error
	})
	require.NoError(t, err)

	notifier.assertNoDelivery(t)
}

func TestRun_FailedDeliveryDoesNotBlockRemainingEvents(t *testing.T) {
	db := newTestDB(t)
	notifier := newCaptureNotifier()
	notifier.fail = true
	runner := NewRunner(db, notifier, nil)

	err := runner.Run(context.Background(), func(uow *UnitOfWork) error {
		uow.Record(FeedbackCreated{FeedbackID: "a"})
		uow.Record(DeleteRequestCreated{DeleteRequestID: "b"})
		return nil
	})
	require.NoError(t, err, "dispatch failures never surface to the committer")

	// Both events were still attempted.
	notifier.waitFor(t, 2)
}

func TestRun_BufferDrainedAcrossRuns(t *testing.T) {
	db := newTestDB(t)
	notifier := newCaptureNotifier()
	runner := NewRunner(db, notifier, nil)

	err := runner.Run(context.Background(), func(uow *UnitOfWork) error {
		uow.Record(FeedbackCreated{FeedbackID: "first"})
		return nil
	})
	require.NoError(t, err)
	notifier.waitFor(t, 1)

	// A later run must never re-deliver the earlier event.
	err = runner.Run(context.Background(), func(uow *UnitOfWork) error {
		uow.Record(FeedbackCreated{FeedbackID: "second"})
		return nil
	})
	require.NoError(t, err)

	events := notifier.waitFor(t, 1)
	assert.Equal(t, "second", events[0].(FeedbackCreated).FeedbackID)
	notifier.assertNoDelivery(t)
}

func TestNewRunner_NilNotifierIsNoOp(t *testing.T) {
	db := newTestDB(t)
	runner := NewRunner(db, nil, nil)

	err := runner.Run(context.Background(), func(uow *UnitOfWork) error {
		uow.Record(FeedbackCreated{FeedbackID: "a"})
		return nil
	})
	require.NoError(t, err)
}
