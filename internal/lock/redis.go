package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"erpadmin/internal/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyNamespace  = "erpadmin:lock:"
	retryInterval = 50 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

var errNotOwner = errors.New("lock expired before release")

type cmdable interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// Redis is a distributed lock built on SET NX PX.
type Redis struct {
	store cmdable
	ttl   time.Duration
	wait  time.Duration
}

func NewRedis(store cmdable, cfg config.LockConfig) *Redis {
	return &Redis{store: store, ttl: cfg.TTL, wait: cfg.WaitTimeout}
}

// NewRedisClient connects and pings the configured redis server.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (r *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	redisKey := keyNamespace + key
	token := uuid.NewString()
	deadline := time.Now().Add(r.wait)

	for {
		ok, err := r.store.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() error {
				// the caller's context may already be cancelled
				res, err := r.store.Eval(context.Background(), releaseScript, []string{redisKey}, token).Int64()
				if err != nil {
					return fmt.Errorf("release lock %s: %w", key, err)
				}
				if res == 0 {
					return errNotOwner
				}
				return nil
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}
