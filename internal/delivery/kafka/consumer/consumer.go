package consumer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/vogiaan1904/ticketbottle-reservation/config"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/delivery/kafka"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/service"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
)

type Consumer struct {
	consGr       sarama.ConsumerGroup
	engine       service.Engine
	retryMax     int
	retryBackoff time.Duration
	l            logger.Logger
	wg           sync.WaitGroup
}

func NewConsumer(
	consGr sarama.ConsumerGroup,
	engine service.Engine,
	cfg config.KafkaConfig,
	l logger.Logger,
) *Consumer {
	return &Consumer{
		consGr:       consGr,
		engine:       engine,
		retryMax:     max(cfg.ConsumerRetryMax, 1),
		retryBackoff: cfg.ConsumerRetryBackoff,
		l:            l,
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	switch msg.Topic {
	case kafka.TopicPaymentCompleted:
		return c.HandlePaymentCompleted(ctx, msg)
	case kafka.TopicPaymentFailed:
		return c.HandlePaymentFailed(ctx, msg)
	case kafka.TopicRefundRequested:
		return c.HandleRefundRequested(ctx, msg)
	default:
		c.l.Warnf(ctx, "Unknown topic: %s", msg.Topic)
		return nil
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	topics := kafka.ConsumedTopics
	c.wg.Go(func() {
		for {
			if err := c.consGr.Consume(ctx, topics, c); err != nil {
				c.l.Errorf(ctx, "delivery.kafka.consumer.Start: %v", err)
			}

			if ctx.Err() != nil {
				c.l.Infof(ctx, "delivery.kafka.consumer.Start: %v", ctx.Err())
				return
			}
		}
	})

	c.wg.Go(func() {
		for err := range c.consGr.Errors() {
			c.l.Errorf(ctx, "delivery.kafka.consumer.Start: %v", err)
		}
	})

	c.l.Infof(ctx, "Consumer is consuming topics: %v", topics)
	return nil
}

func (c *Consumer) Close() error {
	if err := c.consGr.Close(); err != nil {
		return err
	}

	c.wg.Wait()
	return nil
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	c.l.Debug(context.Background(), "Consumer group session started")
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	c.l.Debug(context.Background(), "Consumer group session ended")
	return nil
}

// ConsumeClaim handles messages in offset order and marks each one after it
// was handled. A message that still fails after retryMax attempts ends the
// claim without being marked, and no later offset of the partition is
// marked either, so the next session resumes from it.
func (c *Consumer) ConsumeClaim(ss sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}

			ctx := c.l.With(ss.Context(), "topic", message.Topic, "offset", message.Offset)
			if err := c.withRetry(ctx, func() error {
				return c.processMessage(ctx, message)
			}); err != nil {
				c.l.Errorf(ctx, "delivery.kafka.consumer.ConsumeClaim: %v", err)
				return err
			}

			ss.MarkMessage(message, "")

		case <-ss.Context().Done():
			return nil
		}
	}
}

func (c *Consumer) withRetry(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt < c.retryMax; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryBackoff * time.Duration(attempt)):
			}
		}

		if err := operation(); err != nil {
			lastErr = err
			c.l.Warnf(ctx, "delivery.kafka.consumer.withRetry: attempt %d/%d: %v", attempt+1, c.retryMax, err)
			continue
		}

		return nil
	}

	return fmt.Errorf("message failed after %d attempts: %w", c.retryMax, lastErr)
}
