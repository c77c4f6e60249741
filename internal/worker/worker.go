package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"profile_hub/internal/audit"
	"profile_hub/internal/observability"
	"profile_hub/internal/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const maxRetries = 3

func republishWithRetry(ch *amqp.Channel, msg *amqp.Delivery, retryCount int32) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	headers := amqp.Table{}
	if msg.Headers != nil {
		headers = msg.Headers
	}
	headers["x-retry-count"] = retryCount

	return ch.PublishWithContext(
		ctx,
		"",             // exchange
		msg.RoutingKey, // routing key (queue name)
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType: msg.ContentType,
			Body:        msg.Body,
			Headers:     headers,
		},
	)
}

// StartWorker consumes audit events and persists them to the audit log.
// Events are acked only after the insert commits; failed inserts are
// redelivered with a bounded retry count.
func StartWorker(conn *amqp.Connection, db *sql.DB, repo audit.RepositoryInterface, id int) {
	ch, err := conn.Channel()
	if err != nil {
		logrus.Fatalf("Worker %d failed to open channel: %v", id, err)
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		logrus.Fatalf("Worker %d failed to set QoS: %v", id, err)
	}

	msgs, err := ch.Consume(
		audit.QueueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logrus.Fatalf("Worker %d failed to start consuming messages: %v", id, err)
	}

	logrus.Infof("Audit worker %d started", id)

	for msg := range msgs {
		observability.GlobalMetrics.QueueMessagesConsumed.WithLabelValues(audit.QueueName).Inc()

		var event audit.Event
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			logrus.Error("invalid audit event payload")
			observability.GlobalMetrics.AuditEventsFailed.WithLabelValues("invalid_payload").Inc()
			msg.Nack(false, false)
			continue
		}

		retryCount := int32(0)
		if msg.Headers != nil {
			if count, ok := msg.Headers["x-retry-count"].(int32); ok {
				retryCount = count
			}
		}

		logrus.Infof(
			"Worker %d persisting audit event action=%s user=%s (retry: %d)",
			id,
			event.Action,
			event.UserID,
			retryCount,
		)

		if err := utils.WithTransaction(db, func(tx *sql.Tx) error {
			_, err := repo.Insert(tx, &event)
			return err
		}); err != nil {
			logrus.WithError(err).Error("Failed to persist audit event")

			if retryCount >= maxRetries {
				logrus.WithField("action", event.Action).Error("Audit event dropped after max retries")
				observability.GlobalMetrics.AuditEventsFailed.WithLabelValues("max_retries").Inc()
				msg.Nack(false, false)
				continue
			}

			logrus.Infof("Worker %d: insert failed, requeuing (retry %d/%d)", id, retryCount+1, maxRetries)

			if err := republishWithRetry(ch, &msg, retryCount+1); err != nil {
				logrus.WithError(err).Error("Failed to republish audit event")
				observability.GlobalMetrics.AuditEventsFailed.WithLabelValues("republish_error").Inc()
				msg.Nack(false, false)
				continue
			}

			observability.GlobalMetrics.QueueMessagesPublished.WithLabelValues(audit.QueueName).Inc()
			msg.Ack(false)
			continue
		}

		observability.GlobalMetrics.AuditEventsPersisted.WithLabelValues(event.Action).Inc()
		msg.Ack(false)
	}
}
