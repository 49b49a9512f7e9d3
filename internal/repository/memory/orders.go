package memory

import (
	"context"
	"time"

	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
)

type orderRow = models.Order

func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	defer s.lock(ctx)()
	for _, existing := range s.st.orders {
		if existing.TicketHoldID == o.TicketHoldID {
			return errDuplicateOrder
		}
	}
	s.st.orders[o.ID] = *o
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	defer s.lock(ctx)()
	o, ok := s.st.orders[id]
	if !ok {
		return nil, errs.ErrOrderNotFound
	}
	return &o, nil
}

func (s *Store) GetOrderForUpdate(ctx context.Context, id string) (*models.Order, error) {
	return s.GetOrder(ctx, id)
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, now time.Time) error {
	defer s.lock(ctx)()
	o, ok := s.st.orders[id]
	if !ok {
		return errs.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = now
	s.st.orders[id] = o
	return nil
}
