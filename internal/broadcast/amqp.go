package broadcast

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"dispatch/internal/domain"
)

// AMQPPublisher publishes ride events to a RabbitMQ topic exchange for
// external collaborators. The topic "ride:<id>" becomes the routing key
// "ride.<id>".
type AMQPPublisher struct {
	ch       *amqp.Channel
	conn     *amqp.Connection
	exchange string
	log      *zap.Logger
}

// NewAMQPPublisher dials the broker and declares the topic exchange.
func NewAMQPPublisher(url, exchange string, log *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPPublisher{ch: ch, conn: conn, exchange: exchange, log: log}, nil
}

// Publish sends the event as a persistent JSON message. Failures are
// logged and swallowed.
func (p *AMQPPublisher) Publish(ctx context.Context, topic string, event domain.Event) {
	body, err := json.Marshal(event)
	if err != nil {
		p.log.Error("marshal event", zap.Error(err), zap.String("topic", topic))
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	routingKey := strings.ReplaceAll(topic, ":", ".")
	err = p.ch.PublishWithContext(pubCtx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		p.log.Warn("publish event", zap.Error(err), zap.String("topic", topic))
	}
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}

var _ Publisher = (*AMQPPublisher)(nil)
