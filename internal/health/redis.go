package health

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisChecker probes the Redis client used for rate limiting. Redis is
// optional, so readiness treats its failures as non-fatal; the probe
// still reports them so operators can see the degradation.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a Redis health checker.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// HealthCheck sends a PING, honoring the context deadline.
func (r *RedisChecker) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
