package models

import "time"

type DiscountKind string

const (
	DiscountKindPercentage  DiscountKind = "PERCENTAGE"
	DiscountKindFixedAmount DiscountKind = "FIXED_AMOUNT"
)

func (k DiscountKind) IsValid() bool {
	return k == DiscountKindPercentage || k == DiscountKindFixedAmount
}

// DiscountCode is a usage-capped code scoped to one event. A nil MaxUses
// means unlimited; nil window bounds are open.
type DiscountCode struct {
	ID            string       `json:"id"`
	EventID       string       `json:"event_id"`
	Code          string       `json:"code"`
	Kind          DiscountKind `json:"kind"`
	Value         int64        `json:"value"`
	MaxUses       *int         `json:"max_uses,omitempty"`
	ConfirmedUses int          `json:"confirmed_uses"`
	StartsAt      *time.Time   `json:"starts_at,omitempty"`
	EndsAt        *time.Time   `json:"ends_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (c *DiscountCode) Unlimited() bool {
	return c.MaxUses == nil
}

// Apply returns amount after the discount, never below zero.
func (c *DiscountCode) Apply(amount int64) int64 {
	var off int64
	switch c.Kind {
	case DiscountKindPercentage:
		off = amount * c.Value / 100
	case DiscountKindFixedAmount:
		off = c.Value
	}
	if off > amount {
		return 0
	}
	return amount - off
}
