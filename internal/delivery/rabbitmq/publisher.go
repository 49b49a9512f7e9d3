package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/clock"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
)

// Notification is the JSON body put on the queue.
type Notification struct {
	HolderID  string         `json:"holder_id"`
	Template  string         `json:"template"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends holder notifications to a durable queue. It satisfies
// service.NotificationPort.
type Publisher struct {
	conn  *amqp.Connection
	ch    channel
	queue string
	clk   clock.Clock
	l     logger.Logger
}

func NewPublisher(url, queue string, clk clock.Clock, l logger.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &Publisher{
		conn:  conn,
		ch:    ch,
		queue: q.Name,
		clk:   clk,
		l:     l,
	}, nil
}

func (p *Publisher) Send(ctx context.Context, holderID, template string, data map[string]any) error {
	now := p.clk.Now()
	body, err := json.Marshal(Notification{
		HolderID:  holderID,
		Template:  template,
		Data:      data,
		Timestamp: now,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = p.ch.PublishWithContext(
		ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    now,
			Type:         template,
		},
	)
	if err != nil {
		p.l.Errorf(ctx, "delivery.rabbitmq.Publisher.Send: %v", err)
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

func (p *Publisher) Close() error {
	var errs []error

	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
