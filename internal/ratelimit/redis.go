package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis shares windows between API replicas. The counter key expires with the window.
type Redis struct {
	client redis.Cmdable
	cfg    Config
	prefix string
	now    func() time.Time
}

func NewRedis(client redis.Cmdable, cfg Config) *Redis {
	return &Redis{client: client, cfg: cfg, prefix: "ratelimit:", now: time.Now}
}

// Allow counts the request with INCR and reads the window's TTL in one
// transaction. A key without TTL, fresh or left behind by a failed EXPIRE,
// starts a new window.
func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := r.prefix + key

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate limit pipeline: %w", err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		if err := r.client.PExpire(ctx, redisKey, r.cfg.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("rate limit expire: %w", err)
		}
		remaining = r.cfg.Window
	}

	count := int(incr.Val())
	d := Decision{
		Allowed: count <= r.cfg.Requests,
		Limit:   r.cfg.Requests,
		ResetAt: r.now().Add(remaining),
	}
	if d.Allowed {
		d.Remaining = r.cfg.Requests - count
	}
	return d, nil
}
