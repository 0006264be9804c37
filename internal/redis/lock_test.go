package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	upload_errors "uploadgate/pkg/errors"
)

// These tests need a live Redis; they are skipped unless REDIS_TEST_ADDR is
// set (e.g. REDIS_TEST_ADDR=localhost:6379 go test ./internal/redis/...).
func testClient(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping Redis integration test")
	}
	client := NewClient(Config{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, Ping(context.Background(), client))
	return client
}

func TestWithLock_AcquireAndRelease(t *testing.T) {
	client := testClient(t)
	locker := NewLocker(client)
	ctx := context.Background()
	key := fmt.Sprintf("test:lock:%d", time.Now().UnixNano())

	ran := false
	err := locker.WithLock(ctx, key, 5*time.Second, func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	// the lock is released, so a second acquisition succeeds immediately
	err = locker.WithLock(ctx, key, 5*time.Second, func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestWithLock_FailsFastWhenHeld(t *testing.T) {
	client := testClient(t)
	locker := NewLocker(client)
	ctx := context.Background()
	key := fmt.Sprintf("test:lock:%d", time.Now().UnixNano())

	err := locker.WithLock(ctx, key, 5*time.Second, func(ctx context.Context) error {
		return locker.WithLock(ctx, key, 5*time.Second, func(ctx context.Context) error {
			t.Fatal("second holder must not run")
			return nil
		})
	})
	assert.ErrorIs(t, err, upload_errors.ErrLockNotAcquired)
}

func TestWithLock_ReleasesOnError(t *testing.T) {
	client := testClient(t)
	locker := NewLocker(client)
	ctx := context.Background()
	key := fmt.Sprintf("test:lock:%d", time.Now().UnixNano())

	boom := errors.New("boom")
	err := locker.WithLock(ctx, key, 5*time.Second, func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	err = locker.WithLock(ctx, key, 5*time.Second, func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestNewRateLimiter_FallsBackToDefaults(t *testing.T) {
	limiter := NewRateLimiter(nil, RateLimitConfig{})
	assert.Equal(t, DefaultRateLimitConfig(), limiter.config)

	limiter = NewRateLimiter(nil, RateLimitConfig{InitLimit: 5})
	assert.Equal(t, DefaultRateLimitConfig(), limiter.config, "window missing")

	cfg := RateLimitConfig{InitLimit: 5, InitWindow: time.Minute}
	limiter = NewRateLimiter(nil, cfg)
	assert.Equal(t, cfg, limiter.config)
}

func TestRateLimiter_AllowInit(t *testing.T) {
	client := testClient(t)
	limiter := NewRateLimiter(client, RateLimitConfig{InitLimit: 2, InitWindow: 10 * time.Second})
	ctx := context.Background()
	ip := fmt.Sprintf("10.0.0.%d", time.Now().UnixNano()%250)

	t.Cleanup(func() {
		client.Del(context.Background(), fmt.Sprintf("ratelimit:%s:init", ip))
	})

	first, err := limiter.AllowInit(ctx, ip)
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)

	second, err := limiter.AllowInit(ctx, ip)
	require.NoError(t, err)
	assert.True(t, second.Allowed)
	assert.Equal(t, 0, second.Remaining)

	third, err := limiter.AllowInit(ctx, ip)
	require.NoError(t, err)
	assert.False(t, third.Allowed)
}
