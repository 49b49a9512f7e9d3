package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vogiaan1904/ticketbottle-reservation/config"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/clock"
	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/repository"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
)

const SweepLockKey = "reservation:sweep:lock"

// Locker is a cross-process mutex. AcquireLock returns "" when another
// owner holds the key.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, key, token string) (bool, error)
	ExtendLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
}

var errSweepLockLost = fmt.Errorf("%w: run lock expired or was taken over", errs.ErrSweepInProgress)

type ExpirySweeper interface {
	Start(ctx context.Context) error
	Stop() error
	// SweepExpired runs one pass and returns the number of ticket and
	// discount holds moved to EXPIRED.
	SweepExpired(ctx context.Context) (int, error)
	GetStatus() SweeperStatus
}

type expirySweeper struct {
	store  repository.Store
	wlSvc  WaitlistService
	locker Locker
	clk    clock.Clock
	logger logger.Logger

	interval        time.Duration
	batchSize       int
	lockTTL         time.Duration
	shutdownTimeout time.Duration

	// runMu keeps passes in this process from overlapping; locker does the
	// same across replicas.
	runMu sync.Mutex

	mu           sync.RWMutex
	isRunning    bool
	startedAt    time.Time
	stopCh       chan struct{}
	ticker       *time.Ticker
	wg           sync.WaitGroup
	lastSwept    time.Time
	totalExpired int64
	errorCount   int64
}

// NewExpirySweeper builds a sweeper. locker may be nil for single-process
// deployments.
func NewExpirySweeper(
	store repository.Store,
	wlSvc WaitlistService,
	locker Locker,
	clk clock.Clock,
	l logger.Logger,
	cfg config.ReservationConfig,
) ExpirySweeper {
	return &expirySweeper{
		store:           store,
		wlSvc:           wlSvc,
		locker:          locker,
		clk:             clk,
		logger:          l,
		interval:        cfg.SweepInterval,
		batchSize:       cfg.SweepBatchSize,
		lockTTL:         cfg.SweepLockTTL,
		shutdownTimeout: 30 * time.Second,
	}
}

func (s *expirySweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return errors.New("expiry sweeper is already running")
	}

	s.logger.Infof(ctx, "Starting expiry sweeper: interval=%s batch_size=%d", s.interval, s.batchSize)

	s.isRunning = true
	s.startedAt = s.clk.Now()
	s.stopCh = make(chan struct{})
	s.ticker = time.NewTicker(s.interval)

	s.wg.Add(1)
	go s.sweepLoop(ctx, s.ticker, s.stopCh)

	return nil
}

func (s *expirySweeper) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return errors.New("expiry sweeper is not running")
	}
	close(s.stopCh)
	s.ticker.Stop()
	s.isRunning = false
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "Stopping expiry sweeper...")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info(ctx, "Expiry sweeper stopped gracefully")
	case <-time.After(s.shutdownTimeout):
		s.logger.Warn(ctx, "Expiry sweeper shutdown timeout exceeded")
	}
	return nil
}

func (s *expirySweeper) sweepLoop(ctx context.Context, ticker *time.Ticker, stopCh <-chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Expiry sweeper stopped due to context cancellation")
			return
		case <-stopCh:
			return
		case <-ticker.C:
			n, err := s.SweepExpired(ctx)
			switch {
			case errors.Is(err, errs.ErrSweepInProgress):
				s.logger.Debug(ctx, "sweep skipped, another pass holds the lock")
			case err != nil:
				s.logger.Errorf(ctx, "service.expirySweeper.sweepLoop: %v", err)
			case n > 0:
				s.logger.Infof(ctx, "sweep expired %d holds", n)
			}
		}
	}
}

func (s *expirySweeper) SweepExpired(ctx context.Context) (int, error) {
	if !s.runMu.TryLock() {
		return 0, errs.ErrSweepInProgress
	}
	defer s.runMu.Unlock()

	now := s.clk.Now()
	p := &sweepPass{tiers: map[string]struct{}{}, failed: map[string]bool{}}

	if s.locker != nil {
		token, err := s.locker.AcquireLock(ctx, SweepLockKey, s.lockTTL)
		if err != nil {
			s.incrementErrorCount()
			return 0, err
		}
		if token == "" {
			return 0, errs.ErrSweepInProgress
		}
		p.lockToken = token
		defer func() {
			if _, err := s.locker.ReleaseLock(context.WithoutCancel(ctx), SweepLockKey, token); err != nil {
				s.logger.Warnf(ctx, "service.expirySweeper.SweepExpired: release lock: %v", err)
			}
		}()
	}

	_, wlTiers, err := s.wlSvc.ExpireNotified(ctx, 0)
	if err != nil {
		p.errors++
	}
	for _, id := range wlTiers {
		p.tiers[id] = struct{}{}
	}

	if err := s.expireTicketHolds(ctx, now, p); err != nil {
		s.logger.Errorf(ctx, "service.expirySweeper.SweepExpired: ticket holds: %v", err)
		p.errors++
	}
	if err := s.expireDiscountHolds(ctx, now, p); err != nil {
		s.logger.Errorf(ctx, "service.expirySweeper.SweepExpired: discount holds: %v", err)
		p.errors++
	}

	// Capacity freed above is handed to waiters even when the lock was lost
	// mid-pass; the replica that took it over never saw these rows.
	for tierID := range p.tiers {
		if _, err := s.wlSvc.Promote(ctx, tierID); err != nil {
			s.logger.Errorf(ctx, "service.expirySweeper.SweepExpired: promote tier %s: %v", tierID, err)
			p.errors++
		}
	}

	s.recordPass(now, p)
	if p.lockLost {
		return p.expired, errSweepLockLost
	}
	return p.expired, nil
}

func (s *expirySweeper) recordPass(now time.Time, p *sweepPass) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSwept = now
	s.totalExpired += int64(p.expired)
	s.errorCount += int64(p.errors)
}

type sweepPass struct {
	expired int
	errors  int
	tiers   map[string]struct{}
	// failed rows are not retried within the same pass.
	failed map[string]bool

	lockToken string
	lockLost  bool
}

// extendLock pushes the run-lock TTL out before the next batch. It reports
// false once another replica may own the lock, which ends the pass.
func (s *expirySweeper) extendLock(ctx context.Context, p *sweepPass) bool {
	if s.locker == nil || p.lockToken == "" {
		return true
	}
	if p.lockLost {
		return false
	}

	ok, err := s.locker.ExtendLock(ctx, SweepLockKey, p.lockToken, s.lockTTL)
	if err != nil {
		s.logger.Warnf(ctx, "service.expirySweeper.extendLock: %v", err)
	}
	if err != nil || !ok {
		p.lockLost = true
		p.errors++
		return false
	}
	return true
}

// Rows that failed earlier in the pass stay PENDING and keep coming back
// first in the listing, so each page asks for that many extra rows and the
// rows behind them are still reached.
func (s *expirySweeper) expireTicketHolds(ctx context.Context, now time.Time, p *sweepPass) error {
	skipped := 0
	for {
		limit := s.batchSize + skipped
		holds, err := s.store.ListExpiredTicketHolds(ctx, now, limit)
		if err != nil {
			return err
		}

		seen := 0
		for _, h := range holds {
			if p.failed[h.ID] {
				continue
			}
			seen++
			ok, err := s.store.TransitionTicketHold(ctx, h.ID, models.HoldStatusPending, models.HoldStatusExpired, now)
			if err != nil {
				s.logger.Errorf(ctx, "service.expirySweeper.expireTicketHolds: hold %s: %v", h.ID, err)
				p.failed[h.ID] = true
				p.errors++
				skipped++
				continue
			}
			if ok {
				p.expired++
				p.tiers[h.TierID] = struct{}{}
			}
		}

		if len(holds) < limit || seen == 0 {
			return nil
		}
		if !s.extendLock(ctx, p) {
			return nil
		}
	}
}

func (s *expirySweeper) expireDiscountHolds(ctx context.Context, now time.Time, p *sweepPass) error {
	if !s.extendLock(ctx, p) {
		return nil
	}

	skipped := 0
	for {
		limit := s.batchSize + skipped
		holds, err := s.store.ListExpiredDiscountHolds(ctx, now, limit)
		if err != nil {
			return err
		}

		seen := 0
		for _, h := range holds {
			if p.failed[h.ID] {
				continue
			}
			seen++
			ok, err := s.store.TransitionDiscountHold(ctx, h.ID, models.HoldStatusPending, models.HoldStatusExpired, now)
			if err != nil {
				s.logger.Errorf(ctx, "service.expirySweeper.expireDiscountHolds: hold %s: %v", h.ID, err)
				p.failed[h.ID] = true
				p.errors++
				skipped++
				continue
			}
			if ok {
				p.expired++
			}
		}

		if len(holds) < limit || seen == 0 {
			return nil
		}
		if !s.extendLock(ctx, p) {
			return nil
		}
	}
}

func (s *expirySweeper) incrementErrorCount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorCount++
}

func (s *expirySweeper) GetStatus() SweeperStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SweeperStatus{
		IsRunning:    s.isRunning,
		StartedAt:    s.startedAt,
		LastSwept:    s.lastSwept,
		TotalExpired: s.totalExpired,
		ErrorCount:   s.errorCount,
	}
}
