// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LocalLimiter is a per-process token bucket per key.
//
// The bucket holds limit tokens and refills at limit per window, which admits
// the same sustained rate as [RedisLimiter] while smoothing bursts.
type LocalLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	every   rate.Limit
	burst   int
	now     func() time.Time
}

// NewLocalLimiter creates a limiter admitting limit actions per window.
func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	return &LocalLimiter{
		buckets: make(map[string]*rate.Limiter),
		every:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		now:     time.Now,
	}
}

// Allow implements [Limiter]. It never returns an error.
func (limiter *LocalLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	limiter.mu.Lock()
	bucket, found := limiter.buckets[key]
	if !found {
		bucket = rate.NewLimiter(limiter.every, limiter.burst)
		limiter.buckets[key] = bucket
	}
	limiter.mu.Unlock()

	now := limiter.now()
	reservation := bucket.ReserveN(now, 1)
	if !reservation.OK() {
		return false, 0, nil
	}

	delay := reservation.DelayFrom(now)
	if delay > 0 {
		// Denied: give the token back so a rejected call does not cost budget.
		reservation.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}
