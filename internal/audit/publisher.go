package audit

import (
	"context"
	"encoding/json"
	"time"

	"profile_hub/internal/observability"
	"profile_hub/internal/queue"

	amqp "github.com/rabbitmq/amqp091-go"
)

// QueueName is the durable queue audit events flow through.
const QueueName = "audit_queue"

type PublisherInterface interface {
	Publish(e *Event) error
}

type Publisher struct {
	conn *amqp.Connection
}

func NewPublisher(conn *amqp.Connection) PublisherInterface {
	return &Publisher{conn: conn}
}

// Publish sends one event to the audit queue. Callers treat failures as
// non-fatal: the originating write has already committed.
func (p *Publisher) Publish(e *Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	ch, err := queue.CreateChannel(p.conn)
	if err != nil {
		return err
	}
	defer ch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ch.PublishWithContext(
		ctx,
		"",
		QueueName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		return err
	}

	observability.GlobalMetrics.QueueMessagesPublished.WithLabelValues(QueueName).Inc()
	return nil
}
