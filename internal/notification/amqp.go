package notification

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the subset of *amqp.Channel the sink needs
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes events to a topic exchange with routing key "<type>.<userID>"
type AMQPSink struct {
	ch       Publisher
	exchange string
}

func NewAMQPSink(ch Publisher, exchange string) *AMQPSink {
	return &AMQPSink{ch: ch, exchange: exchange}
}

// DialAMQP opens a channel and declares the durable topic exchange
func DialAMQP(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("notification: dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("notification: open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("notification: declare exchange %s: %w", exchange, err)
	}

	return conn, ch, nil
}

func RoutingKey(userID string, event Event) string {
	return fmt.Sprintf("%s.%s", event.Type, userID)
}

func (s *AMQPSink) Notify(ctx context.Context, userID string, event Event) error {
	body, err := json.Marshal(struct {
		UserID string `json:"userId"`
		Event
	}{UserID: userID, Event: event})
	if err != nil {
		return fmt.Errorf("notification: encode event: %w", err)
	}

	err = s.ch.PublishWithContext(ctx,
		s.exchange,
		RoutingKey(userID, event),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Type:         string(event.Type),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to exchange %s: %w", s.exchange, err)
	}
	return nil
}
