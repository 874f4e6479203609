package events

import (
	"context"
	"fmt"

	"github.com/illmade-knight/bikepark/pkg/locations"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// amqpChannel is the subset of *amqp.Channel the notifier uses.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitNotifier publishes changes to a durable topic exchange, using the
// change type as routing key.
type RabbitNotifier struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
	logger   zerolog.Logger
}

// NewRabbitNotifier dials url and declares the exchange.
func NewRabbitNotifier(url, exchange string, logger zerolog.Logger) (*RabbitNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	n, err := newRabbitNotifier(ch, exchange, logger)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	n.conn = conn
	return n, nil
}

func newRabbitNotifier(ch amqpChannel, exchange string, logger zerolog.Logger) (*RabbitNotifier, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &RabbitNotifier{
		ch:       ch,
		exchange: exchange,
		logger:   logger.With().Str("component", "RabbitNotifier").Str("exchange", exchange).Logger(),
	}, nil
}

func (n *RabbitNotifier) Notify(ctx context.Context, change locations.Change) error {
	payload, err := encode(change)
	if err != nil {
		return err
	}
	err = n.ch.PublishWithContext(ctx, n.exchange, string(change.Type), false, false, amqp.Publishing{
		ContentType:  ContentType,
		DeliveryMode: amqp.Persistent,
		Timestamp:    change.OccurredAt,
		MessageId:    change.Location.ID,
		Type:         string(change.Type),
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s change: %w", change.Type, err)
	}
	n.logger.Debug().Str("change", string(change.Type)).Msg("Published change")
	return nil
}

func (n *RabbitNotifier) Close() error {
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
