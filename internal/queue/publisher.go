package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"bookkeeping/internal/observability"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher sends ledger events to a durable queue on the default exchange.
type Publisher struct {
	conn      *amqp.Connection
	queueName string
	metrics   *observability.Metrics
}

// NewPublisher declares queueName once so events are not dropped before
// the first worker starts.
func NewPublisher(conn *amqp.Connection, queueName string, metrics *observability.Metrics) (*Publisher, error) {
	ch, err := CreateChannel(conn)
	if err != nil {
		return nil, err
	}
	defer ch.Close()

	if _, err := DeclareQueue(ch, queueName); err != nil {
		return nil, err
	}

	return &Publisher{
		conn:      conn,
		queueName: queueName,
		metrics:   metrics,
	}, nil
}

// Publish opens a short-lived channel per event.
func (p *Publisher) Publish(ctx context.Context, event LedgerEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal ledger event: %w", err)
	}

	ch, err := CreateChannel(p.conn)
	if err != nil {
		p.metrics.QueuePublishFailures.WithLabelValues(p.queueName).Inc()
		return err
	}
	defer ch.Close()

	err = ch.PublishWithContext(
		ctx,
		"",          // exchange
		p.queueName, // routing key (queue name)
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Type:         event.Action,
			Body:         body,
		},
	)
	if err != nil {
		p.metrics.QueuePublishFailures.WithLabelValues(p.queueName).Inc()
		return fmt.Errorf("publish ledger event: %w", err)
	}

	p.metrics.QueueMessagesPublished.WithLabelValues(p.queueName).Inc()
	logrus.WithFields(logrus.Fields{
		"action":         event.Action,
		"user_id":        event.UserID,
		"transaction_id": event.TransactionID,
	}).Debug("Ledger event published")
	return nil
}
