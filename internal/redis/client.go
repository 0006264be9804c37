package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient creates a Redis client. The client is constructed once in the
// composition root and injected; callers own its lifecycle and must Close it
// on shutdown.
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping verifies the connection is usable.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
