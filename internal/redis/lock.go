package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	upload_errors "uploadgate/pkg/errors"
)

// releaseScript deletes the lock key only while it still holds this
// caller's token. A holder whose lock expired and was reclaimed by another
// caller must not delete the new holder's lock.
var releaseScript = goredis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1]
	then return redis.call("del", KEYS[1])
	else return 0 end
`)

// Locker provides token-based mutual exclusion with a TTL. Acquisition is a
// single SET NX; it fails fast when the key is already held rather than
// queueing.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error
}

type RedisLocker struct {
	client *goredis.Client
}

func NewLocker(client *goredis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

var _ Locker = (*RedisLocker)(nil)

// WithLock runs fn while holding key. It returns ErrLockNotAcquired when
// another holder owns the key. The release runs on every exit path; the TTL
// must exceed fn's expected duration with margin.
func (l *RedisLocker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return err
	}
	if !acquired {
		return upload_errors.ErrLockNotAcquired
	}

	defer func() {
		// Release with a fresh context so a canceled request context
		// cannot leave the lock to expire on its own.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}()

	return fn(ctx)
}
