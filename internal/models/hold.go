package models

import "time"

type HoldStatus string

const (
	HoldStatusPending   HoldStatus = "PENDING"
	HoldStatusCompleted HoldStatus = "COMPLETED"
	HoldStatusCancelled HoldStatus = "CANCELLED"
	HoldStatusExpired   HoldStatus = "EXPIRED"
)

func (s HoldStatus) IsTerminal() bool {
	return s == HoldStatusCompleted || s == HoldStatusCancelled || s == HoldStatusExpired
}

// TicketHold is a time-boxed claim on units of a tier.
type TicketHold struct {
	ID        string     `json:"id"`
	TierID    string     `json:"tier_id"`
	HolderID  string     `json:"holder_id"`
	Quantity  int        `json:"quantity"`
	Status    HoldStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsActive reports whether the hold still counts against availability at now.
func (h *TicketHold) IsActive(now time.Time) bool {
	return h.Status == HoldStatusPending && h.ExpiresAt.After(now)
}

// DiscountHold is a time-boxed claim on one use of a discount code.
type DiscountHold struct {
	ID             string     `json:"id"`
	DiscountCodeID string     `json:"discount_code_id"`
	HolderID       string     `json:"holder_id"`
	Status         HoldStatus `json:"status"`
	TicketHoldID   *string    `json:"ticket_hold_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (h *DiscountHold) IsActive(now time.Time) bool {
	return h.Status == HoldStatusPending && h.ExpiresAt.After(now)
}

func (h *DiscountHold) IsLinked() bool {
	return h.TicketHoldID != nil && *h.TicketHoldID != ""
}
