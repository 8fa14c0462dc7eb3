package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"evaluations/internal/cycle"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	key      string
	msg      amqp.Publishing
	deadline bool
	err      error
	closed   bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	_, f.deadline = ctx.Deadline()
	f.key, f.msg = key, msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestCycleGeneratedPublishesJSON(t *testing.T) {
	ch := &fakeChannel{}
	at := time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)
	p := &AMQPPublisher{channel: ch, queue: "evaluation_cycle_events", now: func() time.Time { return at }}

	res := cycle.Result{
		RunID:           "run-1",
		Year:            2025,
		SelfCreated:     4,
		UpwardCreated:   1,
		DownwardCreated: 3,
		Skipped:         []cycle.Skip{{PersonID: 9, Reason: cycle.SkipManagerIneligible}},
	}
	require.NoError(t, p.CycleGenerated(context.Background(), res))

	require.Equal(t, "evaluation_cycle_events", ch.key)
	require.True(t, ch.deadline, "publish runs with a timeout")
	require.Equal(t, "application/json", ch.msg.ContentType)
	require.Equal(t, "run-1", ch.msg.MessageId)

	var got CycleGenerated
	require.NoError(t, json.Unmarshal(ch.msg.Body, &got))
	require.Equal(t, CycleGenerated{
		Event:           "cycle.generated",
		RunID:           "run-1",
		Year:            2025,
		SelfCreated:     4,
		UpwardCreated:   1,
		DownwardCreated: 3,
		Skipped:         1,
		GeneratedAt:     at,
	}, got)

	require.NoError(t, p.Close())
	require.True(t, ch.closed)
}

func TestCycleGeneratedReturnsBrokerError(t *testing.T) {
	boom := errors.New("channel closed")
	p := &AMQPPublisher{channel: &fakeChannel{err: boom}, queue: "q", now: time.Now}
	require.ErrorIs(t, p.CycleGenerated(context.Background(), cycle.Result{}), boom)
}
