package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
)

func TestCreateTicketHold_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tier := env.tier(t, "evt-1", 10, 1000)

	for _, qty := range []int{0, -1} {
		_, err := env.engine.CreateTicketHold(ctx, CreateTicketHoldInput{TierID: tier.ID, HolderID: "alice", Quantity: qty})
		assert.ErrorIs(t, err, errs.ErrInvalidQuantity)
	}

	_, err := env.engine.CreateTicketHold(ctx, CreateTicketHoldInput{TierID: tier.ID, Quantity: 1})
	assert.ErrorIs(t, err, errs.ErrInvalidID)

	_, err = env.engine.CreateTicketHold(ctx, CreateTicketHoldInput{TierID: "missing", HolderID: "alice", Quantity: 1})
	assert.ErrorIs(t, err, errs.ErrTierNotFound)

	_, err = env.engine.CreateTicketHold(ctx, CreateTicketHoldInput{TierID: tier.ID, HolderID: "alice", Quantity: 11})
	assert.ErrorIs(t, err, errs.ErrInsufficientInventory)
	assert.Equal(t, 10, env.available(t, tier.ID))
}

func TestCreateTicketHold_NoOversellUnderConcurrency(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tier := env.tier(t, "evt-1", 10, 1000)

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		other     []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.engine.CreateTicketHold(ctx, CreateTicketHoldInput{TierID: tier.ID, HolderID: "buyer", Quantity: 3})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, errs.ErrInsufficientInventory):
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, other)
	assert.LessOrEqual(t, succeeded*3, 10)
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 1, env.available(t, tier.ID))
}

func TestCreateTicketHold_TwoConcurrentSixesOnTen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tier := env.tier(t, "evt-1", 10, 1000)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, holder := range []string{"alice", "bob"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.engine.CreateTicketHold(ctx, CreateTicketHoldInput{TierID: tier.ID, HolderID: holder, Quantity: 6})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, insufficient int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, errs.ErrInsufficientInventory):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, 4, env.available(t, tier.ID))
}

func TestCreateTicketHold_LazyExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tier := env.tier(t, "evt-1", 4, 1000)

	_, err := env.engine.CreateTicketHold(ctx, CreateTicketHoldInput{TierID: tier.ID, HolderID: "alice", Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, 0, env.available(t, tier.ID))

	// Past expiry but not yet swept: the hold no longer counts.
	env.clk.Advance(env.cfg.TicketHoldTTL)
	assert.Equal(t, 4, env.available(t, tier.ID))

	_, err = env.engine.CreateTicketHold(ctx, CreateTicketHoldInput{TierID: tier.ID, HolderID: "bob", Quantity: 4})
	assert.NoError(t, err)
}

func TestCancelTicketHold(t *testing.T) {
	ctx := context.Background()

	t.Run("not found and forbidden", func(t *testing.T) {
		env := newTestEnv(t)
		tier := env.tier(t, "evt-1", 5, 1000)
		hold, err := env.engine.CreateTicketHold(ctx, CreateTicketHoldInput{TierID: tier.ID, HolderID: "alice", Quantity: 2})
		require.NoError(t, err)

		assert.ErrorIs(t, env.engine.CancelTicketHold(ctx, "missing", "alice"), errs.ErrHoldNotFound)
		assert.ErrorIs(t, env.engine.CancelTicketHold(ctx, hold.ID, "mallory"), errs.ErrHoldForbidden)
		assert.Equal(t, 3, env.available(t, tier.ID))
	})

	t.Run("frees capacity and is a no-op when terminal", func(t *testing.T) {
		env := newTestEnv(t)
		tier := env.tier(t, "evt-1", 5, 1000)
		hold, err := env.engine.CreateTicketHold(ctx, CreateTicketHoldInput{TierID: tier.ID, HolderID: "alice", Quantity: 2})
		require.NoError(t, err)

		require.NoError(t, env.engine.CancelTicketHold(ctx, hold.ID, "alice"))
		assert.Equal(t, 5, env.available(t, tier.ID))

		require.NoError(t, env.engine.CancelTicketHold(ctx, hold.ID, "alice"))
		got, err := env.store.GetTicketHold(ctx, hold.ID)
		require.NoError(t, err)
		assert.Equal(t, models.HoldStatusCancelled, got.Status)

		_, err = env.engine.FinalizeTicketHold(ctx, hold.ID, "alice")
		assert.ErrorIs(t, err, errs.ErrHoldExpired)
	})

	t.Run("cancels the linked discount hold", func(t *testing.T) {
		env := newTestEnv(t)
		tier := env.tier(t, "evt-1", 5, 1000)
		code := env.code(t, "evt-1", intPtr(1))

		hold, err := env.engine.CreateTicketHold(ctx, CreateTicketHoldInput{TierID: tier.ID, HolderID: "alice", Quantity: 1})
		require.NoError(t, err)
		dh, err := env.engine.CreateDiscountHold(ctx, code.ID, "alice")
		require.NoError(t, err)
		_, err = env.engine.LinkDiscountHold(ctx, dh.ID, hold.ID, "alice")
		require.NoError(t, err)

		require.NoError(t, env.engine.CancelTicketHold(ctx, hold.ID, "alice"))

		got, err := env.store.GetDiscountHold(ctx, dh.ID)
		require.NoError(t, err)
		assert.Equal(t, models.HoldStatusCancelled, got.Status)

		// The single use is free again.
		_, err = env.engine.CreateDiscountHold(ctx, code.ID, "bob")
		assert.NoError(t, err)
	})
}

func TestFinalizeTicketHold(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a confirmed order once", func(t *testing.T) {
		env := newTestEnv(t)
		tier := env.tier(t, "evt-1", 10, 2500)
		hold, err := env.engine.CreateTicketHold(ctx, CreateTicketHoldInput{TierID: tier.ID, HolderID: "alice", Quantity: 3})
		require.NoError(t, err)

		order, err := env.engine.FinalizeTicketHold(ctx, hold.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusConfirmed, order.Status)
		assert.Equal(t, int64(7500), order.Amount)
		assert.Equal(t, hold.ID, order.TicketHoldID)
		assert.Nil(t, order.DiscountCodeID)

		_, err = env.engine.FinalizeTicketHold(ctx, hold.ID, "alice")
		assert.ErrorIs(t, err, errs.ErrHoldExpired)

		assert.Equal(t, 3, env.confirmedSold(t, tier.ID))
		assert.Equal(t, 7, env.available(t, tier.ID))
		assert.Len(t, env.notifier.byTemplate(TemplateOrderConfirmed), 1)
	})

	t.Run("rejects other holders and expired holds", func(t *testing.T) {
		env := newTestEnv(t)
		tier := env.tier(t, "evt-1", 10, 2500)
		hold, err := env.engine.CreateTicketHold(ctx, CreateTicketHoldInput{TierID: tier.ID, HolderID: "alice", Quantity: 1})
		require.NoError(t, err)

		_, err = env.engine.FinalizeTicketHold(ctx, hold.ID, "bob")
		assert.ErrorIs(t, err, errs.ErrHoldForbidden)

		_, err = env.engine.FinalizeTicketHold(ctx, "missing", "alice")
		assert.ErrorIs(t, err, errs.ErrHoldNotFound)

		env.clk.Advance(env.cfg.TicketHoldTTL + time.Second)
		_, err = env.engine.FinalizeTicketHold(ctx, hold.ID, "alice")
		assert.ErrorIs(t, err, errs.ErrHoldExpired)
		assert.Equal(t, 0, env.confirmedSold(t, tier.ID))
	})

	t.Run("notification failure does not roll back", func(t *testing.T) {
		env := newTestEnv(t)
		env.notifier.err = errors.New("broker down")
		tier := env.tier(t, "evt-1", 10, 100)
		hold, err := env.engine.CreateTicketHold(ctx, CreateTicketHoldInput{TierID: tier.ID, HolderID: "alice", Quantity: 1})
		require.NoError(t, err)

		_, err = env.engine.FinalizeTicketHold(ctx, hold.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, 1, env.confirmedSold(t, tier.ID))
	})

	t.Run("applies a linked discount", func(t *testing.T) {
		env := newTestEnv(t)
		tier := env.tier(t, "evt-1", 10, 5000)
		code := env.code(t, "evt-1", intPtr(3))

		hold, err := env.engine.CreateTicketHold(ctx, CreateTicketHoldInput{TierID: tier.ID, HolderID: "alice", Quantity: 2})
		require.NoError(t, err)
		dh, err := env.engine.CreateDiscountHold(ctx, code.ID, "alice")
		require.NoError(t, err)
		_, err = env.engine.LinkDiscountHold(ctx, dh.ID, hold.ID, "alice")
		require.NoError(t, err)

		order, err := env.engine.FinalizeTicketHold(ctx, hold.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(8000), order.Amount)
		require.NotNil(t, order.DiscountCodeID)
		assert.Equal(t, code.ID, *order.DiscountCodeID)
		assert.Equal(t, 1, env.confirmedUses(t, code.ID))

		got, err := env.store.GetDiscountHold(ctx, dh.ID)
		require.NoError(t, err)
		assert.Equal(t, models.HoldStatusCompleted, got.Status)
	})
}

func TestRefundOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("restores sold count and discount uses", func(t *testing.T) {
		env := newTestEnv(t)
		tier := env.tier(t, "evt-1", 10, 5000)
		code := env.code(t, "evt-1", intPtr(3))

		soldBefore := env.confirmedSold(t, tier.ID)
		usesBefore := env.confirmedUses(t, code.ID)

		hold, err := env.engine.CreateTicketHold(ctx, CreateTicketHoldInput{TierID: tier.ID, HolderID: "alice", Quantity: 4})
		require.NoError(t, err)
		dh, err := env.engine.CreateDiscountHold(ctx, code.ID, "alice")
		require.NoError(t, err)
		_, err = env.engine.LinkDiscountHold(ctx, dh.ID, hold.ID, "alice")
		require.NoError(t, err)

		order, err := env.engine.FinalizeTicketHold(ctx, hold.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, soldBefore+4, env.confirmedSold(t, tier.ID))
		assert.Equal(t, usesBefore+1, env.confirmedUses(t, code.ID))

		refunded, err := env.engine.RefundOrder(ctx, order.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, refunded.Status)
		assert.Equal(t, soldBefore, env.confirmedSold(t, tier.ID))
		assert.Equal(t, usesBefore, env.confirmedUses(t, code.ID))
		assert.Equal(t, 10, env.available(t, tier.ID))
		assert.Len(t, env.notifier.byTemplate(TemplateOrderRefunded), 1)

		_, err = env.engine.RefundOrder(ctx, order.ID, "alice")
		assert.ErrorIs(t, err, errs.ErrOrderNotRefundable)
		assert.Equal(t, soldBefore, env.confirmedSold(t, tier.ID))
	})

	t.Run("unknown order", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.engine.RefundOrder(ctx, "missing", "alice")
		assert.ErrorIs(t, err, errs.ErrOrderNotFound)
	})

	t.Run("promotes the waitlist", func(t *testing.T) {
		env := newTestEnv(t)
		tier := env.tier(t, "evt-1", 2, 100)
		hold, err := env.engine.CreateTicketHold(ctx, CreateTicketHoldInput{TierID: tier.ID, HolderID: "alice", Quantity: 2})
		require.NoError(t, err)
		order, err := env.engine.FinalizeTicketHold(ctx, hold.ID, "alice")
		require.NoError(t, err)

		entry, err := env.engine.JoinWaitlist(ctx, JoinWaitlistInput{TierID: tier.ID, HolderID: "bob", Quantity: 1})
		require.NoError(t, err)

		_, err = env.engine.RefundOrder(ctx, order.ID, "alice")
		require.NoError(t, err)

		list := env.store.Waitlist(tier.ID)
		require.Len(t, list, 1)
		assert.Equal(t, entry.ID, list[0].ID)
		assert.Equal(t, models.WaitlistStatusNotified, list[0].Status)
		assert.Equal(t, 1, env.available(t, tier.ID))
	})

	t.Run("other holder cannot refund", func(t *testing.T) {
		env := newTestEnv(t)
		tier := env.tier(t, "evt-1", 4, 100)
		hold, err := env.engine.CreateTicketHold(ctx, CreateTicketHoldInput{TierID: tier.ID, HolderID: "alice", Quantity: 2})
		require.NoError(t, err)
		order, err := env.engine.FinalizeTicketHold(ctx, hold.ID, "alice")
		require.NoError(t, err)

		_, err = env.engine.RefundOrder(ctx, order.ID, "mallory")
		assert.ErrorIs(t, err, errs.ErrOrderForbidden)

		_, err = env.engine.RefundOrder(ctx, order.ID, "")
		assert.ErrorIs(t, err, errs.ErrInvalidID)

		got, err := env.store.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusConfirmed, got.Status)
		assert.Equal(t, 2, env.confirmedSold(t, tier.ID))
		assert.Empty(t, env.notifier.byTemplate(TemplateOrderRefunded))
	})

	t.Run("forced refund skips the ownership check", func(t *testing.T) {
		env := newTestEnv(t)
		tier := env.tier(t, "evt-1", 4, 100)
		hold, err := env.engine.CreateTicketHold(ctx, CreateTicketHoldInput{TierID: tier.ID, HolderID: "alice", Quantity: 2})
		require.NoError(t, err)
		order, err := env.engine.FinalizeTicketHold(ctx, hold.ID, "alice")
		require.NoError(t, err)

		refunded, err := env.engine.ForceRefundOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, refunded.Status)
		assert.Zero(t, env.confirmedSold(t, tier.ID))
	})
}
