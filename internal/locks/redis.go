package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	defaultLockTTL   = 30 * time.Second
	lockRetryBackoff = 100 * time.Millisecond
)

var ErrLockNotObtained = errors.New("lock not obtained")

// RedisLocker serialises work across processes sharing one Redis.
type RedisLocker struct {
	locker *redislock.Client
	ttl    time.Duration
	logger logrus.FieldLogger
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, logger logrus.FieldLogger) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{
		locker: redislock.New(client),
		ttl:    ttl,
		logger: logger,
	}
}

// Connect opens a Redis client for address and checks it answers.
func Connect(ctx context.Context, address string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: address})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", address, err)
	}
	return client, nil
}

// Lock retries until key is obtained or ctx ends. The lock expires after the
// TTL even if the holder never releases it.
func (locker *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := locker.locker.Obtain(ctx, key, locker.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(lockRetryBackoff),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrLockNotObtained, key)
	}
	if err != nil {
		return nil, err
	}

	return func() {
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			locker.logger.WithError(err).WithField("key", key).Warn("locks: release failed")
		}
	}, nil
}
