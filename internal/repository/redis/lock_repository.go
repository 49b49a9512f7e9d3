package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
)

// releaseScript deletes the key only when it still holds the caller's token,
// so a lock that expired and was re-acquired elsewhere is left alone.
const releaseScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0`

// extendScript resets the TTL only while the key still holds the caller's token.
const extendScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0`

type LockRepository interface {
	// AcquireLock returns a release token, or "" when another owner holds key.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, key, token string) (bool, error)
	// ExtendLock reports false when the lock expired or changed owner.
	ExtendLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
}

type redisLockRepository struct {
	cli   *redis.Client
	l     logger.Logger
	token func() string
}

func NewRedisLockRepository(cli *redis.Client, l logger.Logger) LockRepository {
	return &redisLockRepository{
		cli:   cli,
		l:     l,
		token: uuid.NewString,
	}
}

func (r *redisLockRepository) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := r.token()

	ok, err := r.cli.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisLockRepository.AcquireLock: %v", err)
		return "", err
	}
	if !ok {
		r.l.Debugf(ctx, "lock %s is held elsewhere", key)
		return "", nil
	}

	return token, nil
}

func (r *redisLockRepository) ReleaseLock(ctx context.Context, key, token string) (bool, error) {
	n, err := r.cli.Eval(ctx, releaseScript, []string{key}, token).Int64()
	if err != nil {
		r.l.Errorf(ctx, "redisLockRepository.ReleaseLock: %v", err)
		return false, err
	}

	return n == 1, nil
}

func (r *redisLockRepository) ExtendLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	n, err := r.cli.Eval(ctx, extendScript, []string{key}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		r.l.Errorf(ctx, "redisLockRepository.ExtendLock: %v", err)
		return false, err
	}

	return n == 1, nil
}
