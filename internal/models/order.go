package models

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

type Order struct {
	ID             string      `json:"id"`
	HolderID       string      `json:"holder_id"`
	TierID         string      `json:"tier_id"`
	TicketHoldID   string      `json:"ticket_hold_id"`
	Quantity       int         `json:"quantity"`
	Amount         int64       `json:"amount"`
	DiscountCodeID *string     `json:"discount_code_id,omitempty"`
	DiscountHoldID *string     `json:"discount_hold_id,omitempty"`
	Status         OrderStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
