// Package mq is the RabbitMQ client shared by the gateway and the codegen worker.
// Everything goes through one topic exchange so consumers bind by pattern.
package mq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const (
	Exchange     = "jsforge.events"
	ExchangeType = "topic"

	dialAttempts = 5
)

// Publisher is the part of Broker request handlers depend on.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Broker wraps one AMQP connection and channel.
type Broker struct {
	url  string
	conn *amqp.Connection
	ch   *amqp.Channel
}

// New connects to RabbitMQ and declares the exchange.
func New(amqpURL string) (*Broker, error) {
	b := &Broker{url: amqpURL}
	if err := b.connect(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Broker) connect() error {
	var err error
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		b.conn, err = amqp.Dial(b.url)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("RabbitMQ connection failed, retrying")
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	if err != nil {
		return fmt.Errorf("rabbitmq connect after %d attempts: %w", dialAttempts, err)
	}

	closed := b.conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if err, ok := <-closed; ok {
			log.Error().Err(err).Msg("rabbitmq connection lost")
		}
	}()

	b.ch, err = b.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	return b.ch.ExchangeDeclare(
		Exchange,
		ExchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
}

// Publish sends a message to the topic exchange with the given routing key.
func (b *Broker) Publish(ctx context.Context, routingKey string, body []byte) error {
	return b.ch.PublishWithContext(ctx,
		Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			AppId:        "jsforge",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// Subscribe binds a durable queue to the exchange using a routing key pattern
// such as "code.requested" or "code.#". Deliveries must be acked by the caller.
func (b *Broker) Subscribe(queueName, pattern string) (<-chan amqp.Delivery, error) {
	q, err := b.ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}

	if err := b.ch.QueueBind(q.Name, pattern, Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue %s to %s: %w", queueName, pattern, err)
	}

	// one unacked message per consumer
	if err := b.ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return b.ch.Consume(
		q.Name,
		"",    // consumer tag, auto-generated
		false, // auto-ack
		false, false, false, nil,
	)
}

// Healthy reports whether the connection and channel are still open.
func (b *Broker) Healthy() bool {
	return b.conn != nil && !b.conn.IsClosed() && b.ch != nil && !b.ch.IsClosed()
}

func (b *Broker) Close() {
	if b.ch != nil {
		b.ch.Close()
	}
	if b.conn != nil {
		b.conn.Close()
	}
}
