// Package ratelimit paces outbound DNS queries with a jittered token bucket.
package ratelimit

import (
	"context"
	"math/rand/v2"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/tbckr/mailcheck/internal/services"
)

// jitterFactor is the maximum relative deviation applied to a wait.
const jitterFactor = 0.20

// Limiter wraps a token-bucket rate limiter and adds ±20% jitter to wait intervals.
type Limiter struct {
	inner *rate.Limiter
}

// New creates a Limiter with the given requests-per-second rate and burst
// capacity. A non-positive rps disables limiting.
func New(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return &Limiter{inner: rate.NewLimiter(rate.Inf, 0)}
	}
	return &Limiter{inner: rate.NewLimiter(rate.Limit(rps), max(burst, 1))}
}

// Wait blocks until a token is available, adding jitter to the delay.
// It returns ctx.Err() if ctx ends first.
func (l *Limiter) Wait(ctx context.Context) error {
	res := l.inner.Reserve()
	if !res.OK() {
		return ctx.Err()
	}

	delay := res.Delay()
	if delay <= 0 {
		return nil
	}
	jitter := time.Duration(float64(delay) * jitterFactor * (rand.Float64()*2 - 1)) //nolint:gosec // jitter only
	delay = max(0, delay+jitter)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		res.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Resolver gates every lookup of an underlying resolver on a Limiter.
type Resolver struct {
	next    services.MXResolver
	limiter *Limiter
}

var _ services.MXResolver = (*Resolver)(nil)

// WrapResolver returns next paced by limiter.
func WrapResolver(next services.MXResolver, limiter *Limiter) *Resolver {
	return &Resolver{next: next, limiter: limiter}
}

// LookupMX waits for a token, then delegates to the wrapped resolver.
func (r *Resolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.LookupMX(ctx, name)
}
