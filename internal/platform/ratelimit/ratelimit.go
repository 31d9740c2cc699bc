// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ratelimit enforces the per-user action budget.

Creating a comment and casting a vote draw from the same budget: a user may
perform at most N actions per window (10 per minute by default).

Implementations:

  - [RedisLimiter]: fixed window counter shared by every API instance.
  - [LocalLimiter]: in-process token bucket (golang.org/x/time/rate) for tests
    and single-instance runs without Redis.

[Guard] is what the domain services call. It turns a denial into
apperr.RateLimited and fails open when the limiter itself is unavailable.
*/
package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/polutek/tingtong/internal/platform/apperr"
	"github.com/polutek/tingtong/internal/platform/ctxutil"
)

// Limiter decides whether the holder of key may perform one more action.
type Limiter interface {
	// Allow consumes one unit of key's budget. When denied, retryAfter tells
	// the caller how long until the budget refills.
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// Guard applies a [Limiter] to user actions.
type Guard struct {
	limiter Limiter
	logger  *slog.Logger
}

// NewGuard wraps limiter. A nil limiter disables limiting.
func NewGuard(limiter Limiter, logger *slog.Logger) *Guard {
	return &Guard{limiter: limiter, logger: logger}
}

// Check consumes one action for userID.
//
// Returns apperr.RateLimited when the budget is exhausted. Limiter failures
// are logged and the action is allowed.
func (guard *Guard) Check(ctx context.Context, userID string) error {
	if guard == nil || guard.limiter == nil {
		return nil
	}

	allowed, retryAfter, err := guard.limiter.Allow(ctx, userID)
	if err != nil {
		ctxutil.LoggerOr(ctx, guard.logger).ErrorContext(ctx, "rate_limiter_unavailable",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return nil
	}

	if !allowed {
		return apperr.RateLimited(seconds(retryAfter))
	}
	return nil
}

// seconds rounds a positive duration up to whole seconds, minimum one.
func seconds(duration time.Duration) int {
	if duration <= 0 {
		return 1
	}
	return int(math.Ceil(duration.Seconds()))
}
