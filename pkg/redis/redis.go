package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/loan-risk/pkg/config"
)

const (
	dialTimeout    = 2 * time.Second
	commandTimeout = 500 * time.Millisecond
	connectTimeout = 5 * time.Second
)

// Client wraps the go-redis client used by the rate limiter and the
// readiness probe.
type Client struct {
	*redis.Client
}

// NewRedisClient connects to Redis and verifies the connection. Command
// timeouts are short because every caller on the request path fails open.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  commandTimeout,
		WriteTimeout: commandTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to connect to redis at %s: %w", cfg.RedisAddr(), err)
	}

	return &Client{Client: client}, nil
}
