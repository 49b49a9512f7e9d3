package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogiaan1904/ticketbottle-reservation/config"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/delivery/kafka"
	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/service"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
)

type fakeEngine struct {
	service.Engine

	mu          sync.Mutex
	finalized   []string
	cancelled   []string
	refunded    []string
	finalizeErr error
	cancelErr   error
	refundErr   error

	// flaky fails the next N finalize calls with errFlaky.
	flaky int
}

var errFlaky = errors.New("connection reset by peer")

func (f *fakeEngine) FinalizeTicketHold(_ context.Context, holdID, _ string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized = append(f.finalized, holdID)
	if f.flaky > 0 {
		f.flaky--
		return nil, errFlaky
	}
	if f.finalizeErr != nil {
		return nil, f.finalizeErr
	}
	return &models.Order{ID: "order-" + holdID}, nil
}

func (f *fakeEngine) CancelTicketHold(_ context.Context, holdID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, holdID)
	return f.cancelErr
}

func (f *fakeEngine) ForceRefundOrder(_ context.Context, orderID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunded = append(f.refunded, orderID)
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	return &models.Order{ID: orderID}, nil
}

var testKafkaConfig = config.KafkaConfig{
	ConsumerRetryMax:     3,
	ConsumerRetryBackoff: time.Millisecond,
}

func message(t *testing.T, topic string, v any) *sarama.ConsumerMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: topic, Value: b}
}

func TestProcessMessage(t *testing.T) {
	ctx := context.Background()
	eng := &fakeEngine{}
	c := NewConsumer(nil, eng, testKafkaConfig, logger.InitializeTestZapLogger())

	require.NoError(t, c.processMessage(ctx, message(t, kafka.TopicPaymentCompleted, kafka.PaymentCompletedEvent{HoldID: "h1", HolderID: "alice"})))
	require.NoError(t, c.processMessage(ctx, message(t, kafka.TopicPaymentFailed, kafka.PaymentFailedEvent{HoldID: "h2", HolderID: "bob"})))
	require.NoError(t, c.processMessage(ctx, message(t, kafka.TopicRefundRequested, kafka.RefundRequestedEvent{OrderID: "o1"})))
	require.NoError(t, c.processMessage(ctx, &sarama.ConsumerMessage{Topic: "other"}))

	assert.Equal(t, []string{"h1"}, eng.finalized)
	assert.Equal(t, []string{"h2"}, eng.cancelled)
	assert.Equal(t, []string{"o1"}, eng.refunded)
}

func TestReplaysAreAcknowledged(t *testing.T) {
	ctx := context.Background()
	eng := &fakeEngine{
		finalizeErr: errs.ErrHoldExpired,
		cancelErr:   errs.ErrHoldNotFound,
		refundErr:   errs.ErrOrderNotRefundable,
	}
	c := NewConsumer(nil, eng, testKafkaConfig, logger.InitializeTestZapLogger())

	assert.NoError(t, c.processMessage(ctx, message(t, kafka.TopicPaymentCompleted, kafka.PaymentCompletedEvent{HoldID: "h1"})))
	assert.NoError(t, c.processMessage(ctx, message(t, kafka.TopicPaymentFailed, kafka.PaymentFailedEvent{HoldID: "h1"})))
	assert.NoError(t, c.processMessage(ctx, message(t, kafka.TopicRefundRequested, kafka.RefundRequestedEvent{OrderID: "o1"})))
	assert.NoError(t, c.processMessage(ctx, &sarama.ConsumerMessage{Topic: kafka.TopicPaymentCompleted, Value: []byte("{")}))
}

func TestTransientErrorsAreReturned(t *testing.T) {
	boom := errors.New("db down")
	eng := &fakeEngine{finalizeErr: boom}
	c := NewConsumer(nil, eng, testKafkaConfig, logger.InitializeTestZapLogger())

	err := c.processMessage(context.Background(), message(t, kafka.TopicPaymentCompleted, kafka.PaymentCompletedEvent{HoldID: "h1"}))
	assert.ErrorIs(t, err, boom)
}

type fakeSession struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "member" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context                 { return s.ctx }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	msgs chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                            { return kafka.TopicPaymentCompleted }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

func newClaim(msgs ...*sarama.ConsumerMessage) *fakeClaim {
	claim := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage, len(msgs))}
	for _, m := range msgs {
		claim.msgs <- m
	}
	close(claim.msgs)
	return claim
}

func paymentCompleted(t *testing.T, holdID string, offset int64) *sarama.ConsumerMessage {
	msg := message(t, kafka.TopicPaymentCompleted, kafka.PaymentCompletedEvent{HoldID: holdID})
	msg.Offset = offset
	return msg
}

func TestConsumeClaimMarksHandledMessages(t *testing.T) {
	eng := &fakeEngine{}
	c := NewConsumer(nil, eng, testKafkaConfig, logger.InitializeTestZapLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ss := &fakeSession{ctx: ctx}

	require.NoError(t, c.ConsumeClaim(ss, newClaim(paymentCompleted(t, "h1", 1), paymentCompleted(t, "h2", 2))))
	assert.Equal(t, []int64{1, 2}, ss.marked)
}

func TestConsumeClaimRetriesTransientFailures(t *testing.T) {
	eng := &fakeEngine{flaky: 2}
	c := NewConsumer(nil, eng, testKafkaConfig, logger.InitializeTestZapLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ss := &fakeSession{ctx: ctx}

	require.NoError(t, c.ConsumeClaim(ss, newClaim(paymentCompleted(t, "h10", 10), paymentCompleted(t, "h11", 11))))
	assert.Equal(t, []int64{10, 11}, ss.marked)
	assert.Equal(t, []string{"h10", "h10", "h10", "h11"}, eng.finalized)
}

func TestConsumeClaimStopsAtPersistentFailure(t *testing.T) {
	eng := &fakeEngine{flaky: testKafkaConfig.ConsumerRetryMax}
	c := NewConsumer(nil, eng, testKafkaConfig, logger.InitializeTestZapLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ss := &fakeSession{ctx: ctx}

	err := c.ConsumeClaim(ss, newClaim(paymentCompleted(t, "h9", 9), paymentCompleted(t, "h10", 10), paymentCompleted(t, "h11", 11)))
	require.ErrorIs(t, err, errFlaky)

	// Offset 11 is never handled, so the commit cannot move past offset 10.
	assert.Equal(t, []int64{9}, ss.marked)
	assert.NotContains(t, eng.finalized, "h11")
}

func TestConsumeClaimDoesNotRetryReplays(t *testing.T) {
	eng := &fakeEngine{finalizeErr: errs.ErrHoldExpired}
	c := NewConsumer(nil, eng, testKafkaConfig, logger.InitializeTestZapLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ss := &fakeSession{ctx: ctx}

	require.NoError(t, c.ConsumeClaim(ss, newClaim(paymentCompleted(t, "h1", 1))))
	assert.Equal(t, []int64{1}, ss.marked)
	assert.Equal(t, []string{"h1"}, eng.finalized)
}
