// Package ratelimit throttles statement submissions so one dashboard refresh
// cannot exhaust the account's Redshift Data API ExecuteStatement quota.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket shared by every query of a data source
// instance. A nil RateLimiter lets every call through.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter refilling r tokens per second up to
// bucketSize. A rate of zero or less disables limiting.
func NewRateLimiter(r float64, bucketSize float64) *RateLimiter {
	burst := int(bucketSize)
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(r)
	if r <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Unlimited reports whether the limiter lets every call through.
func (rl *RateLimiter) Unlimited() bool {
	return rl == nil || rl.limiter.Limit() == rate.Inf
}

// Burst returns how many calls may pass at once.
func (rl *RateLimiter) Burst() int {
	if rl == nil {
		return 0
	}
	return rl.limiter.Burst()
}

// Wait blocks until a token is available or the context is done. A wait that
// could not finish before the context deadline fails straight away.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.Unlimited() {
		return ctx.Err()
	}
	return rl.limiter.Wait(ctx)
}
