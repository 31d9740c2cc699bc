// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/polutek/tingtong/internal/platform/constants"
)

// RedisLimiter is a fixed-window counter stored in Redis.
//
// Each key maps to "ratelimit:action:<key>", incremented per action and
// expiring one window after the first action of the window.
type RedisLimiter struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
}

// NewRedisLimiter creates a limiter admitting limit actions per window.
func NewRedisLimiter(client redis.Cmdable, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: int64(limit), window: window}
}

// Allow implements [Limiter].
func (limiter *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	redisKey := constants.RedisPrefixActionLimit + key

	// INCR and PTTL in one round trip
	pipe := limiter.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("redis_action_limit_incr_failed: %w", err)
	}

	// A key without expiry is a fresh window (or one whose EXPIRE was lost).
	remaining := ttl.Val()
	if remaining < 0 {
		if err := limiter.client.PExpire(ctx, redisKey, limiter.window).Err(); err != nil {
			return false, 0, fmt.Errorf("redis_action_limit_expire_failed: %w", err)
		}
		remaining = limiter.window
	}

	if incr.Val() > limiter.limit {
		return false, remaining, nil
	}
	return true, 0, nil
}
