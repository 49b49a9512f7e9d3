package memory

import (
	"context"
	"errors"
	"maps"
	"sync"

	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/repository"
)

var (
	errDuplicateCode        = errs.ErrCodeExists
	errNegativeUses         = errors.New("memory: confirmed_uses cannot go negative")
	errDuplicatePendingHold = errors.New("memory: holder already has a pending hold on this code")
	errDuplicateOrder       = errors.New("memory: order already exists for ticket hold")
)

// Store is an in-process repository.Store. Transactions are serialized by a
// single mutex and rolled back by restoring a snapshot, which gives the same
// isolation the postgres store gets from row locks.
type Store struct {
	mu    sync.Mutex
	st    state
	seq   int64
	fails map[string]error
}

type state struct {
	tiers         map[string]tierRow
	ticketHolds   map[string]ticketHoldRow
	codes         map[string]codeRow
	discountHolds map[string]discountHoldRow
	waitlist      map[string]waitlistRow
	orders        map[string]orderRow
}

func (s state) clone() state {
	return state{
		tiers:         maps.Clone(s.tiers),
		ticketHolds:   maps.Clone(s.ticketHolds),
		codes:         maps.Clone(s.codes),
		discountHolds: maps.Clone(s.discountHolds),
		waitlist:      maps.Clone(s.waitlist),
		orders:        maps.Clone(s.orders),
	}
}

func New() *Store {
	return &Store{
		st: state{
			tiers:         map[string]tierRow{},
			ticketHolds:   map[string]ticketHoldRow{},
			codes:         map[string]codeRow{},
			discountHolds: map[string]discountHoldRow{},
			waitlist:      map[string]waitlistRow{},
			orders:        map[string]orderRow{},
		},
		fails: map[string]error{},
	}
}

var _ repository.Store = (*Store)(nil)

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// lock takes the store mutex unless ctx already runs inside one of this
// store's transactions.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

// FailOn makes method return err for the given row id ("" matches every
// row) until cleared with a nil err. Used by tests to inject row failures.
func (s *Store) FailOn(method, id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + ":" + id
	if err == nil {
		delete(s.fails, key)
		return
	}
	s.fails[key] = err
}

func (s *Store) failure(method, id string) error {
	if err, ok := s.fails[method+":"+id]; ok {
		return err
	}
	return s.fails[method+":"]
}
