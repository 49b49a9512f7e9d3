package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/clock"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	sent   []published
	err    error
	closed bool
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestPublisherSend(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ch := &fakeChannel{}
	p := &Publisher{ch: ch, queue: "email_queue", clk: clock.NewFixed(now), l: logger.InitializeTestZapLogger()}

	require.NoError(t, p.Send(context.Background(), "holder-1", "waitlist_available", map[string]any{"tier_id": "t1"}))
	require.Len(t, ch.sent, 1)

	got := ch.sent[0]
	assert.Equal(t, "", got.exchange)
	assert.Equal(t, "email_queue", got.key)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "application/json", got.msg.ContentType)

	var n Notification
	require.NoError(t, json.Unmarshal(got.msg.Body, &n))
	assert.Equal(t, "holder-1", n.HolderID)
	assert.Equal(t, "waitlist_available", n.Template)
	assert.Equal(t, "t1", n.Data["tier_id"])
	assert.True(t, n.Timestamp.Equal(now))

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestPublisherSendError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := &Publisher{ch: ch, queue: "email_queue", clk: clock.NewSystem(), l: logger.InitializeTestZapLogger()}

	err := p.Send(context.Background(), "holder-1", "order_confirmed", nil)
	assert.ErrorContains(t, err, "failed to publish message")
}
