package ratelimiter

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limiter throttles queries sent to the Smalltalk image.
//
// A live image answers one request at a time on a single socket, so a burst
// of directory listings from a file browser can starve interactive use of the
// image. Limiter is a token bucket in front of that socket.
//
// A nil *Limiter never blocks. All methods are safe for concurrent use.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a Limiter allowing queriesPerSecond sustained and burst at once.
//
// queriesPerSecond <= 0 disables limiting. A burst of 0 is raised to 1 so a
// finite rate can make progress.
func New(queriesPerSecond float64, burst int) *Limiter {
	if queriesPerSecond <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(queriesPerSecond), burst)}
}

// Wait blocks until one query may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// Allow reports whether a query may be sent right now, consuming a token if so.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.limiter.Allow()
}

// SetLimit changes the sustained rate. queriesPerSecond <= 0 disables limiting.
func (l *Limiter) SetLimit(queriesPerSecond float64) {
	if l == nil {
		return
	}
	if queriesPerSecond <= 0 {
		l.limiter.SetLimit(rate.Inf)
		return
	}
	if l.limiter.Burst() < 1 {
		l.limiter.SetBurst(1)
	}
	l.limiter.SetLimit(rate.Limit(queriesPerSecond))
}

// Unlimited reports whether the limiter lets everything through.
func (l *Limiter) Unlimited() bool {
	return l == nil || l.limiter.Limit() == rate.Inf
}
