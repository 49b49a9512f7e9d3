package kafka

const (
	TopicNotification = "reservation.notification"

	TopicPaymentCompleted = "payment.completed"
	TopicPaymentFailed    = "payment.failed"
	TopicRefundRequested  = "refund.requested"
)

// ConsumedTopics are the checkout service topics this service reacts to.
var ConsumedTopics = []string{TopicPaymentCompleted, TopicPaymentFailed, TopicRefundRequested}
