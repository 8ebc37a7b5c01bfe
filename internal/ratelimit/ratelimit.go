// Package ratelimit wraps golang.org/x/time/rate's token bucket for the
// two places morganite bounds self-inflicted traffic bursts: inbound
// connection accepts and outbound broadcast fan-out.
//
// Grounded in the teacher's middleware.RateLimitMiddleware, which builds
// exactly one rate.Limiter per middleware instance (shared across every
// request, never recreated per-call) and rejects instead of blocking
// when the bucket is empty. The acceptor and mediator reuse that same
// shape: construct once, call Allow() per event, reject-don't-queue.
package ratelimit

import "golang.org/x/time/rate"

// Limiter is a thin, intention-revealing wrapper so callers don't import
// golang.org/x/time/rate directly.
type Limiter struct {
	l *rate.Limiter
}

// New builds a token bucket refilling at r tokens/second with the given
// burst capacity.
func New(r float64, burst int) *Limiter {
	return &Limiter{l: rate.NewLimiter(rate.Limit(r), burst)}
}

// Allow reports whether a token is available right now, consuming it if so.
func (l *Limiter) Allow() bool {
	return l.l.Allow()
}
