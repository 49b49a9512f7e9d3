package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
)

func newTestLockRepository(t *testing.T) (*redisLockRepository, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	repo := &redisLockRepository{
		cli:   db,
		l:     logger.InitializeTestZapLogger(),
		token: func() string { return "token-1" },
	}
	return repo, mock
}

func TestAcquireLock(t *testing.T) {
	ctx := context.Background()
	key := "reservation:sweep:lock"

	t.Run("acquired", func(t *testing.T) {
		repo, mock := newTestLockRepository(t)
		mock.ExpectSetNX(key, "token-1", 5*time.Minute).SetVal(true)

		token, err := repo.AcquireLock(ctx, key, 5*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "token-1", token)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("held elsewhere", func(t *testing.T) {
		repo, mock := newTestLockRepository(t)
		mock.ExpectSetNX(key, "token-1", 5*time.Minute).SetVal(false)

		token, err := repo.AcquireLock(ctx, key, 5*time.Minute)
		require.NoError(t, err)
		assert.Empty(t, token)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis error", func(t *testing.T) {
		repo, mock := newTestLockRepository(t)
		mock.ExpectSetNX(key, "token-1", time.Minute).SetErr(errors.New("connection refused"))

		_, err := repo.AcquireLock(ctx, key, time.Minute)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReleaseLock(t *testing.T) {
	ctx := context.Background()
	key := "reservation:sweep:lock"

	t.Run("owner releases", func(t *testing.T) {
		repo, mock := newTestLockRepository(t)
		mock.ExpectEval(releaseScript, []string{key}, "token-1").SetVal(int64(1))

		ok, err := repo.ReleaseLock(ctx, key, "token-1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale token leaves key alone", func(t *testing.T) {
		repo, mock := newTestLockRepository(t)
		mock.ExpectEval(releaseScript, []string{key}, "stale").SetVal(int64(0))

		ok, err := repo.ReleaseLock(ctx, key, "stale")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestExtendLock(t *testing.T) {
	ctx := context.Background()
	key := "reservation:sweep:lock"

	t.Run("owner extends", func(t *testing.T) {
		repo, mock := newTestLockRepository(t)
		mock.ExpectEval(extendScript, []string{key}, "token-1", int64(60000)).SetVal(int64(1))

		ok, err := repo.ExtendLock(ctx, key, "token-1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost lock", func(t *testing.T) {
		repo, mock := newTestLockRepository(t)
		mock.ExpectEval(extendScript, []string{key}, "token-1", int64(60000)).SetVal(int64(0))

		ok, err := repo.ExtendLock(ctx, key, "token-1", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis error", func(t *testing.T) {
		repo, mock := newTestLockRepository(t)
		mock.ExpectEval(extendScript, []string{key}, "token-1", int64(60000)).SetErr(errors.New("connection refused"))

		_, err := repo.ExtendLock(ctx, key, "token-1", time.Minute)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
