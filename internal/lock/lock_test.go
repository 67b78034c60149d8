package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"erpadmin/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSerialisesSameKey(t *testing.T) {
	locker := NewLocal(time.Second)
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), Key("order", "o-1"))
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			assert.NoError(t, release())
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxInside)
	assert.Empty(t, locker.entries)
}

func TestLocalTimesOut(t *testing.T) {
	locker := NewLocal(20 * time.Millisecond)
	release, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)

	_, err = locker.Acquire(context.Background(), "k")
	assert.True(t, errors.Is(err, ErrTimeout))

	other, err := locker.Acquire(context.Background(), "other")
	require.NoError(t, err)
	require.NoError(t, other())
	require.NoError(t, release())

	again, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)
	require.NoError(t, again())
}

type mockCmdable struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string)}
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[keys[0]] == args[0].(string) {
		delete(m.data, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func TestRedisAcquireAndRelease(t *testing.T) {
	store := newMockCmdable()
	locker := NewRedis(store, config.LockConfig{TTL: time.Second, WaitTimeout: 30 * time.Millisecond})

	release, err := locker.Acquire(context.Background(), Key("dispatch", "d-1"))
	require.NoError(t, err)
	assert.Contains(t, store.data, "erpadmin:lock:dispatch:d-1")

	_, err = locker.Acquire(context.Background(), Key("dispatch", "d-1"))
	assert.ErrorIs(t, err, ErrTimeout)

	require.NoError(t, release())
	assert.Empty(t, store.data)

	again, err := locker.Acquire(context.Background(), Key("dispatch", "d-1"))
	require.NoError(t, err)
	require.NoError(t, again())
}

func TestRedisReleaseAfterExpiry(t *testing.T) {
	store := newMockCmdable()
	locker := NewRedis(store, config.LockConfig{TTL: time.Second, WaitTimeout: time.Second})

	release, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)

	// another holder took over after expiry
	store.data[keyNamespace+"k"] = "someone-else"
	assert.Error(t, release())
	assert.Equal(t, "someone-else", store.data[keyNamespace+"k"])
}
