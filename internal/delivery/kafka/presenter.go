package kafka

import "time"

// Events published BY Reservation Service

type NotificationEvent struct {
	HolderID  string         `json:"holder_id"`
	Template  string         `json:"template"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Events consumed BY Reservation Service (from Checkout Service)

type PaymentCompletedEvent struct {
	HoldID    string    `json:"hold_id"`
	HolderID  string    `json:"holder_id"`
	PaymentID string    `json:"payment_id"`
	Timestamp time.Time `json:"timestamp"`
}

type PaymentFailedEvent struct {
	HoldID    string    `json:"hold_id"`
	HolderID  string    `json:"holder_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

type RefundRequestedEvent struct {
	OrderID   string    `json:"order_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}
