package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/IBM/sarama"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/delivery/kafka"
	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
)

// Malformed payloads are logged and dropped; redelivering them cannot
// succeed.

func (c *Consumer) HandlePaymentCompleted(ctx context.Context, message *sarama.ConsumerMessage) error {
	var e kafka.PaymentCompletedEvent
	if err := json.Unmarshal(message.Value, &e); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.HandlePaymentCompleted: %v", err)
		return nil
	}

	order, err := c.engine.FinalizeTicketHold(ctx, e.HoldID, e.HolderID)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrHoldExpired):
			// Replays land here once the first delivery completed the hold.
			c.l.Warnf(ctx, "delivery.kafka.consumer.HandlePaymentCompleted: hold %s: %v", e.HoldID, err)
			return nil
		case isPermanent(err):
			c.l.Errorf(ctx, "delivery.kafka.consumer.HandlePaymentCompleted: dropping hold %s: %v", e.HoldID, err)
			return nil
		}
		c.l.Errorf(ctx, "delivery.kafka.consumer.HandlePaymentCompleted: %v", err)
		return err
	}

	c.l.Infof(ctx, "payment %s finalized hold %s into order %s", e.PaymentID, e.HoldID, order.ID)
	return nil
}

func (c *Consumer) HandlePaymentFailed(ctx context.Context, message *sarama.ConsumerMessage) error {
	var e kafka.PaymentFailedEvent
	if err := json.Unmarshal(message.Value, &e); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.HandlePaymentFailed: %v", err)
		return nil
	}

	if err := c.engine.CancelTicketHold(ctx, e.HoldID, e.HolderID); err != nil {
		if errors.Is(err, errs.ErrHoldExpired) || isPermanent(err) {
			c.l.Warnf(ctx, "delivery.kafka.consumer.HandlePaymentFailed: hold %s: %v", e.HoldID, err)
			return nil
		}
		c.l.Errorf(ctx, "delivery.kafka.consumer.HandlePaymentFailed: %v", err)
		return err
	}

	c.l.Infof(ctx, "payment failed for hold %s (%s), hold cancelled", e.HoldID, e.Reason)
	return nil
}

func (c *Consumer) HandleRefundRequested(ctx context.Context, message *sarama.ConsumerMessage) error {
	var e kafka.RefundRequestedEvent
	if err := json.Unmarshal(message.Value, &e); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.HandleRefundRequested: %v", err)
		return nil
	}

	if _, err := c.engine.ForceRefundOrder(ctx, e.OrderID); err != nil {
		if errors.Is(err, errs.ErrOrderNotRefundable) || isPermanent(err) {
			c.l.Warnf(ctx, "delivery.kafka.consumer.HandleRefundRequested: order %s: %v", e.OrderID, err)
			return nil
		}
		c.l.Errorf(ctx, "delivery.kafka.consumer.HandleRefundRequested: %v", err)
		return err
	}

	c.l.Infof(ctx, "refunded order %s (%s)", e.OrderID, e.Reason)
	return nil
}

func isPermanent(err error) bool {
	return errors.Is(err, errs.ErrHoldNotFound) ||
		errors.Is(err, errs.ErrHoldForbidden) ||
		errors.Is(err, errs.ErrOrderNotFound) ||
		errors.Is(err, errs.ErrInvalidID)
}
