package worker

import (
	"context"
	"errors"
	"time"

	"bookkeeping/internal/observability"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// MaxRetries is how many times a failing message is republished before
// it is dropped.
const MaxRetries = 3

const retryHeader = "x-retry-count"

func republishWithRetry(ch *amqp.Channel, msg *amqp.Delivery, retryCount int32) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[retryHeader] = retryCount

	return ch.PublishWithContext(
		ctx,
		"",             // exchange
		msg.RoutingKey, // routing key (queue name)
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  msg.ContentType,
			DeliveryMode: amqp.Persistent,
			Type:         msg.Type,
			Timestamp:    msg.Timestamp,
			Body:         msg.Body,
			Headers:      headers,
		},
	)
}

// retryCountOf reads the retry header. The broker may hand integers back
// with a different width than they were sent with.
func retryCountOf(headers amqp.Table) int32 {
	switch v := headers[retryHeader].(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	case int16:
		return int32(v)
	case int8:
		return int32(v)
	default:
		return 0
	}
}

// StartWorker consumes queueName until ctx is cancelled or the channel
// closes. Messages are acked only after the audit entry is stored.
func StartWorker(ctx context.Context, conn *amqp.Connection, queueName string, proc *Processor, metrics *observability.Metrics, id int) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return err
	}

	msgs, err := ch.Consume(
		queueName,
		"",
		false, // auto-ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	logrus.Infof("Worker %d started", id)

	for {
		var msg amqp.Delivery
		var ok bool
		select {
		case <-ctx.Done():
			logrus.Infof("Worker %d stopping", id)
			return nil
		case msg, ok = <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
		}

		metrics.QueueMessagesConsumed.WithLabelValues(queueName).Inc()
		retryCount := retryCountOf(msg.Headers)

		logrus.WithFields(logrus.Fields{
			"worker_id": id,
			"type":      msg.Type,
			"retry":     retryCount,
		}).Debug("Processing ledger event")

		err := proc.Handle(ctx, msg.Body, id)
		if err == nil {
			msg.Ack(false)
			continue
		}

		if errors.Is(err, ErrInvalidPayload) {
			logrus.WithError(err).Error("Dropping invalid ledger event")
			metrics.AuditEventsFailed.WithLabelValues("invalid_payload").Inc()
			msg.Nack(false, false)
			continue
		}

		logrus.WithError(err).Error("Failed to record ledger event")

		if retryCount >= MaxRetries {
			metrics.AuditEventsFailed.WithLabelValues("max_retries").Inc()
			logrus.Errorf("Worker %d: giving up after %d retries", id, retryCount)
			msg.Nack(false, false)
			continue
		}

		logrus.Infof("Worker %d: requeuing ledger event (retry %d/%d)", id, retryCount+1, MaxRetries)

		if err := republishWithRetry(ch, &msg, retryCount+1); err != nil {
			logrus.WithError(err).Error("Failed to republish message")
			metrics.AuditEventsFailed.WithLabelValues("republish_error").Inc()
			msg.Nack(false, false)
			continue
		}

		metrics.QueueMessagesPublished.WithLabelValues(queueName).Inc()
		msg.Ack(false)
	}
}
