package producer

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/clock"
	kafka "github.com/vogiaan1904/ticketbottle-reservation/internal/delivery/kafka"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/util"
)

// Producer publishes holder notifications. It satisfies
// service.NotificationPort.
type Producer interface {
	Send(ctx context.Context, holderID, template string, data map[string]any) error
	Close() error
}

type implProducer struct {
	l    logger.Logger
	prod sarama.SyncProducer
	clk  clock.Clock
}

func NewProducer(prod sarama.SyncProducer, clk clock.Clock, l logger.Logger) Producer {
	return &implProducer{
		l:    l,
		prod: prod,
		clk:  clk,
	}
}

func (p *implProducer) Send(ctx context.Context, holderID, template string, data map[string]any) error {
	now := p.clk.Now()
	val, err := json.Marshal(kafka.NotificationEvent{
		HolderID:  holderID,
		Template:  template,
		Data:      data,
		Timestamp: now,
	})
	if err != nil {
		p.l.Errorf(ctx, "delivery.kafka.producer.Send: %v", err)
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: kafka.TopicNotification,
		Key:   sarama.StringEncoder(holderID),
		Value: sarama.ByteEncoder(val),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("timestamp"),
				Value: []byte(util.TimeToISO8601Str(now)),
			},
			{
				Key:   []byte("template"),
				Value: []byte(template),
			},
		},
	}

	partition, offset, err := p.prod.SendMessage(msg)
	if err != nil {
		p.l.Errorf(ctx, "delivery.kafka.producer.Send: %v", err)
		return err
	}

	p.l.Debugf(ctx, "published %s for holder %s to partition %d at offset %d", template, holderID, partition, offset)
	return nil
}

func (p *implProducer) Close() error {
	if err := p.prod.Close(); err != nil {
		return err
	}

	return nil
}
