package health

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/loan-risk/pkg/common"
)

// Checker probes one dependency
type Checker = common.HealthCheckFunc

// CheckerConfig holds configuration for health checkers
type CheckerConfig struct {
	Timeout time.Duration
}

// DefaultCheckerConfig returns the default checker configuration
func DefaultCheckerConfig() CheckerConfig {
	return CheckerConfig{Timeout: 2 * time.Second}
}

// Pinger is satisfied by pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseChecker returns a health check function for a database/sql handle
func DatabaseChecker(db *sql.DB) Checker {
	return DatabaseCheckerWithConfig(db, DefaultCheckerConfig())
}

// DatabaseCheckerWithConfig returns a database checker with custom configuration
func DatabaseCheckerWithConfig(db *sql.DB, config CheckerConfig) Checker {
	return func(ctx context.Context) error {
		if db == nil {
			return errors.New("database connection is nil")
		}
		ctx, cancel := context.WithTimeout(ctx, config.Timeout)
		defer cancel()
		return db.PingContext(ctx)
	}
}

// PoolChecker returns a health check function for a pgx pool
func PoolChecker(pool Pinger) Checker {
	config := DefaultCheckerConfig()
	return func(ctx context.Context) error {
		if pool == nil {
			return errors.New("database pool is nil")
		}
		ctx, cancel := context.WithTimeout(ctx, config.Timeout)
		defer cancel()
		return pool.Ping(ctx)
	}
}

// RedisChecker returns a health check function for Redis
func RedisChecker(client redis.Cmdable) Checker {
	config := DefaultCheckerConfig()
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("redis client is nil")
		}
		ctx, cancel := context.WithTimeout(ctx, config.Timeout)
		defer cancel()
		return client.Ping(ctx).Err()
	}
}
