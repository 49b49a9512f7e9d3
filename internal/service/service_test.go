package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vogiaan1904/ticketbottle-reservation/config"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/clock"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/repository/memory"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
)

var testStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type sentNotification struct {
	HolderID string
	Template string
	Data     map[string]any
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, holderID, template string, data map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{HolderID: holderID, Template: template, Data: data})
	return n.err
}

func (n *fakeNotifier) byTemplate(template string) []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNotification
	for _, s := range n.sent {
		if s.Template == template {
			out = append(out, s)
		}
	}
	return out
}

type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	err      error
	released int
	extended int
	// lostAfter makes ExtendLock fail once it was called that many times.
	lostAfter int
}

func (f *fakeLocker) AcquireLock(_ context.Context, _ string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.held {
		return "", nil
	}
	f.held = true
	return "tok", nil
}

func (f *fakeLocker) ExtendLock(_ context.Context, _, token string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token != "tok" {
		return false, nil
	}
	if f.lostAfter > 0 && f.extended >= f.lostAfter {
		return false, nil
	}
	f.extended++
	return true, nil
}

func (f *fakeLocker) ReleaseLock(_ context.Context, _, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token != "tok" {
		return false, errors.New("bad token")
	}
	f.held = false
	f.released++
	return true, nil
}

type testEnv struct {
	store    *memory.Store
	clk      *clock.Manual
	notifier *fakeNotifier
	locker   *fakeLocker
	cfg      config.ReservationConfig
	c        Components
	engine   Engine
}

func testReservationConfig() config.ReservationConfig {
	return config.ReservationConfig{
		TicketHoldTTL:   15 * time.Minute,
		DiscountHoldTTL: 10 * time.Minute,
		NotifyTTL:       30 * time.Minute,
		SweepInterval:   time.Minute,
		SweepBatchSize:  2,
		SweepLockTTL:    time.Minute,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, testReservationConfig())
}

func newTestEnvWithConfig(t *testing.T, cfg config.ReservationConfig) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    memory.New(),
		clk:      clock.NewManual(testStart),
		notifier: &fakeNotifier{},
		locker:   &fakeLocker{},
		cfg:      cfg,
	}
	env.c = NewComponents(env.store, env.notifier, env.locker, env.clk, cfg, logger.InitializeTestZapLogger())
	env.engine = NewEngine(env.c)
	return env
}

func (e *testEnv) tier(t *testing.T, eventID string, capacity int, price int64) *models.Tier {
	t.Helper()
	tier, err := e.engine.CreateTier(context.Background(), CreateTierInput{
		EventID:  eventID,
		Name:     "GA",
		Capacity: capacity,
		Price:    price,
	})
	require.NoError(t, err)
	return tier
}

func (e *testEnv) code(t *testing.T, eventID string, maxUses *int) *models.DiscountCode {
	t.Helper()
	code, err := e.engine.CreateDiscountCode(context.Background(), CreateDiscountCodeInput{
		EventID: eventID,
		Code:    "SAVE20",
		Kind:    models.DiscountKindPercentage,
		Value:   20,
		MaxUses: maxUses,
	})
	require.NoError(t, err)
	return code
}

func (e *testEnv) available(t *testing.T, tierID string) int {
	t.Helper()
	out, err := e.engine.GetAvailability(context.Background(), tierID)
	require.NoError(t, err)
	return out.Available
}

func (e *testEnv) confirmedSold(t *testing.T, tierID string) int {
	t.Helper()
	tier, err := e.store.GetTier(context.Background(), tierID)
	require.NoError(t, err)
	return tier.ConfirmedSold
}

func (e *testEnv) confirmedUses(t *testing.T, codeID string) int {
	t.Helper()
	code, err := e.store.GetDiscountCode(context.Background(), codeID)
	require.NoError(t, err)
	return code.ConfirmedUses
}

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }
