// Package broker mirrors order events onto a RabbitMQ fanout exchange so
// services outside the API process can follow the kitchen workflow.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/vibedrinks/api/internal/orderflow"
)

const (
	// Exchange is declared on connect; consumers bind their own queues to it.
	Exchange = "notifications_fanout"

	publishTimeout = 5 * time.Second
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher publishes orderflow events as persistent JSON messages.
type Publisher struct {
	conn *amqp.Connection
	ch   Channel
}

// Dial connects to RabbitMQ and declares the fanout exchange.
func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := NewPublisher(ch)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewPublisher declares the exchange on an already open channel.
func NewPublisher(ch Channel) (*Publisher, error) {
	if err := ch.ExchangeDeclare(Exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", Exchange, err)
	}
	return &Publisher{ch: ch}, nil
}

// Publish sends ev to the exchange. Failures are logged, never returned: the
// database commit that produced the event has already happened.
func (p *Publisher) Publish(ev orderflow.Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("ERROR: marshal event: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx,
		Exchange,
		string(ev.Type),
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    ev.OrderID.String(),
			Body:         body,
			Timestamp:    time.Now(),
		})
	if err != nil {
		log.Printf("ERROR: publish %s for order %s: %v", ev.Type, ev.OrderID, err)
	}
}

// Close closes the channel and, when Dial opened it, the connection.
func (p *Publisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
