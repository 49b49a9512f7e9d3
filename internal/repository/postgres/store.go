package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/repository"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
)

// Store implements repository.Store on a pgx pool. Row locks taken with the
// *ForUpdate methods last until the WithTx callback returns.
type Store struct {
	pool *pgxpool.Pool
	l    logger.Logger
}

func NewStore(pool *pgxpool.Pool, l logger.Logger) *Store {
	return &Store{pool: pool, l: l}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, s.pool, fn)
}

func (s *Store) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return s.pool.Exec(ctx, sql, args...)
}

func (s *Store) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return s.pool.QueryRow(ctx, sql, args...)
}

func (s *Store) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return s.pool.Query(ctx, sql, args...)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// limitArg maps a non-positive limit to NULL, which LIMIT treats as "all".
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
