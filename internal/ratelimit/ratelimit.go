// Package ratelimit spaces out completion requests so a held-down Enter key
// or a scripted `orchat ask` loop cannot flood the API.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter is a token bucket with a minimum spacing between requests
type Limiter struct {
	mu          sync.Mutex
	tokens      int
	maxTokens   int
	refillRate  time.Duration // time to earn one token
	lastRefill  time.Time
	minInterval time.Duration
	lastRequest time.Time
}

// New creates a limiter allowing maxRequests per window, never closer
// together than minInterval. Non-positive arguments fall back to 20 per
// minute with 100ms spacing.
func New(maxRequests int, window time.Duration, minInterval time.Duration) *Limiter {
	if maxRequests <= 0 {
		maxRequests = 20
	}
	if window <= 0 {
		window = time.Minute
	}
	if minInterval <= 0 {
		minInterval = 100 * time.Millisecond
	}

	refillRate := window / time.Duration(maxRequests)
	if refillRate <= 0 {
		refillRate = time.Nanosecond
	}

	return &Limiter{
		tokens:      maxRequests,
		maxTokens:   maxRequests,
		refillRate:  refillRate,
		lastRefill:  time.Now(),
		minInterval: minInterval,
	}
}

// Wait blocks until a request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		now := time.Now()
		l.refill(now)

		delay := l.delay(now)
		if delay <= 0 {
			l.tokens--
			l.lastRequest = now
			return nil
		}

		l.mu.Unlock()
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.mu.Lock()
			return fmt.Errorf("rate limit wait cancelled: %w", ctx.Err())
		case <-timer.C:
		}
		l.mu.Lock()
	}
}

// Available reports how many requests could be sent right now.
func (l *Limiter) Available() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill(time.Now())
	return l.tokens
}

func (l *Limiter) refill(now time.Time) {
	if l.refillRate <= 0 {
		return
	}
	elapsed := now.Sub(l.lastRefill)
	earned := int(elapsed / l.refillRate)
	if earned <= 0 {
		return
	}
	l.tokens = min(l.maxTokens, l.tokens+earned)
	l.lastRefill = l.lastRefill.Add(time.Duration(earned) * l.refillRate)
}

// delay returns how long the caller must wait before the next request.
func (l *Limiter) delay(now time.Time) time.Duration {
	var wait time.Duration
	if !l.lastRequest.IsZero() {
		wait = l.minInterval - now.Sub(l.lastRequest)
	}
	if l.tokens <= 0 {
		step := l.refillRate
		if step <= 0 {
			step = l.minInterval
		}
		untilToken := l.lastRefill.Add(step).Sub(now)
		if untilToken <= 0 {
			untilToken = step
		}
		wait = max(wait, untilToken)
	}
	return wait
}
