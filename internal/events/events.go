// Package events announces committed evaluation cycles on a RabbitMQ queue.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"evaluations/internal/cycle"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// CycleGenerated is the message body published after a successful run.
type CycleGenerated struct {
	Event           string    `json:"event"`
	RunID           string    `json:"run_id"`
	Year            int       `json:"year"`
	SelfCreated     int       `json:"self_created"`
	UpwardCreated   int       `json:"upward_created"`
	DownwardCreated int       `json:"downward_created"`
	LonelyManagers  int       `json:"lonely_managers"`
	Skipped         int       `json:"skipped"`
	GeneratedAt     time.Time `json:"generated_at"`
}

func newCycleGenerated(res cycle.Result, at time.Time) CycleGenerated {
	return CycleGenerated{
		Event:           "cycle.generated",
		RunID:           res.RunID,
		Year:            res.Year,
		SelfCreated:     res.SelfCreated,
		UpwardCreated:   res.UpwardCreated,
		DownwardCreated: res.DownwardCreated,
		LonelyManagers:  res.LonelyManagers,
		Skipped:         len(res.Skipped),
		GeneratedAt:     at.UTC(),
	}
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type AMQPPublisher struct {
	conn    *amqp.Connection
	channel channel
	queue   string
	now     func() time.Time
}

// NewAMQPPublisher connects to url and declares a durable queue.
func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	q, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &AMQPPublisher{conn: conn, channel: ch, queue: q.Name, now: time.Now}, nil
}

func (p *AMQPPublisher) CycleGenerated(ctx context.Context, res cycle.Result) error {
	body, err := json.Marshal(newCycleGenerated(res, p.now()))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.channel.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    res.RunID,
		Body:         body,
	})
}

func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) CycleGenerated(context.Context, cycle.Result) error { return nil }
