package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alexanderramin/ideaflow/internal/domain"
	"github.com/alexanderramin/ideaflow/internal/repository"
	"github.com/alexanderramin/ideaflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOutbox(t *testing.T, n int) *repository.SQLiteOutboxRepo {
	t.Helper()
	outbox := repository.NewSQLiteOutboxRepo(testutil.NewTestDB(t))
	for i := 0; i < n; i++ {
		ev := domain.ProjectDeleted{ProjectID: "p1", Name: "Doomed", DeletedAt: testutil.FixedNow.Add(time.Duration(i) * time.Second)}
		require.NoError(t, outbox.Append(context.Background(), ev))
	}
	return outbox
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestRelay_DrainPublishesInBatches(t *testing.T) {
	outbox := seedOutbox(t, 5)
	var got []string
	sink := SinkFunc(func(_ context.Context, rec repository.OutboxRecord) error {
		got = append(got, rec.ID)
		return nil
	})

	relay := NewRelay(outbox, sink, RelayConfig{BatchSize: 2}, WithClock(testutil.FixedClock(testutil.FixedNow)), WithLogger(quietLogger()))
	n, err := relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Len(t, got, 5)

	n, err = relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelay_SinkFailureKeepsUndeliveredEvents(t *testing.T) {
	outbox := seedOutbox(t, 3)
	calls := 0
	sink := SinkFunc(func(context.Context, repository.OutboxRecord) error {
		calls++
		if calls == 2 {
			return errors.New("broker unavailable")
		}
		return nil
	})

	relay := NewRelay(outbox, sink, RelayConfig{BatchSize: 10}, WithLogger(quietLogger()))
	n, err := relay.Drain(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)

	pending, err := outbox.ListPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	n, err = relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

type failingMarkOutbox struct {
	Outbox
}

func (failingMarkOutbox) MarkPublished(context.Context, []string, time.Time) error {
	return errors.New("database is locked")
}

func TestRelay_MarkFailureRedelivers(t *testing.T) {
	outbox := seedOutbox(t, 2)
	delivered := 0
	sink := SinkFunc(func(context.Context, repository.OutboxRecord) error {
		delivered++
		return nil
	})

	_, err := NewRelay(failingMarkOutbox{outbox}, sink, RelayConfig{}, WithLogger(quietLogger())).Drain(context.Background())
	require.Error(t, err)

	n, err := NewRelay(outbox, sink, RelayConfig{}, WithLogger(quietLogger())).Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 4, delivered)
}

func TestLogSink_WritesEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := LogSink{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	err := sink.Publish(context.Background(), repository.OutboxRecord{
		ID: "e1", AggregateID: "p1", EventName: domain.EventProjectCreated, Payload: []byte(`{"name":"x"}`),
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "event=project.created")
	assert.Contains(t, buf.String(), "aggregate_id=p1")
}

type cancelAfterMark struct {
	Outbox
	cancel context.CancelFunc
}

func (o cancelAfterMark) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	err := o.Outbox.MarkPublished(ctx, ids, at)
	o.cancel()
	return err
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	outbox := seedOutbox(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := SinkFunc(func(context.Context, repository.OutboxRecord) error { return nil })

	relay := NewRelay(cancelAfterMark{Outbox: outbox, cancel: cancel}, sink, RelayConfig{Interval: time.Hour}, WithLogger(quietLogger()))
	require.NoError(t, relay.Run(ctx))

	pending, err := outbox.ListPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRelay_RunRejectsNonPositiveInterval(t *testing.T) {
	relay := NewRelay(seedOutbox(t, 0), LogSink{}, RelayConfig{}, WithLogger(quietLogger()))
	require.Error(t, relay.Run(context.Background()))
}
