package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
)

var errDuplicateOrder = errors.New("postgres: order already exists for ticket hold")

const orderColumns = `id, holder_id, tier_id, ticket_hold_id, quantity, amount, discount_code_id, discount_hold_id, status, created_at, updated_at`

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.HolderID, &o.TierID, &o.TicketHoldID, &o.Quantity, &o.Amount,
		&o.DiscountCodeID, &o.DiscountHoldID, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	const stmt = `
INSERT INTO orders (id, holder_id, tier_id, ticket_hold_id, quantity, amount, discount_code_id, discount_hold_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.exec(ctx, stmt, o.ID, o.HolderID, o.TierID, o.TicketHoldID, o.Quantity, o.Amount,
		o.DiscountCodeID, o.DiscountHoldID, o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errDuplicateOrder
		}
		if isInvalidUUID(err) {
			return errs.ErrInvalidID
		}
		s.l.Errorf(ctx, "postgres.Store.CreateOrder: %v", err)
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (s *Store) GetOrderForUpdate(ctx context.Context, id string) (*models.Order, error) {
	return s.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (s *Store) getOrder(ctx context.Context, query, id string) (*models.Order, error) {
	o, err := scanOrder(s.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, errs.ErrInvalidID
		}
		if isNoRows(err) {
			return nil, errs.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, now time.Time) error {
	const stmt = `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`

	tag, err := s.exec(ctx, stmt, id, status, now)
	if err != nil {
		if isInvalidUUID(err) {
			return errs.ErrInvalidID
		}
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrOrderNotFound
	}
	return nil
}
