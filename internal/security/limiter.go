package security

import (
	"context"
	"math"
	"sync"
	"time"
)

// bucket tracks one client's request count within the current window
type bucket struct {
	count       int
	windowStart time.Time
}

// RateLimiter counts requests per key (client IP) within a rolling fixed
// window. State is process-wide, constructed at startup and injected into
// the middleware that uses it.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[string]*bucket
}

// NewRateLimiter creates a limiter allowing max requests per window
func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	return &RateLimiter{
		window: window,
		max:    max,
		hits:   make(map[string]*bucket),
	}
}

// Allow records one request for key. When the count exceeds the window
// maximum it returns false plus the seconds remaining until the window
// resets.
func (l *RateLimiter) Allow(key string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.hits[key]
	if !ok || now.Sub(b.windowStart) >= l.window {
		l.hits[key] = &bucket{count: 1, windowStart: now}
		return true, 0
	}

	b.count++
	if b.count > l.max {
		remaining := l.window - now.Sub(b.windowStart)
		return false, int(math.Ceil(remaining.Seconds()))
	}
	return true, 0
}

// Forgive releases one previously counted request for key. Limiters that
// only count failed requests call this once the response succeeds.
func (l *RateLimiter) Forgive(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.hits[key]; ok && b.count > 0 {
		b.count--
	}
}

// Sweep evicts expired buckets until ctx is cancelled
func (l *RateLimiter) Sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			now := time.Now()
			for key, b := range l.hits {
				if now.Sub(b.windowStart) >= l.window {
					delete(l.hits, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// SpeedLimiter injects increasing artificial delay once a key exceeds
// delayAfter requests within the window. It never rejects.
type SpeedLimiter struct {
	mu         sync.Mutex
	window     time.Duration
	delayAfter int
	step       time.Duration
	maxDelay   time.Duration
	hits       map[string]*bucket
}

// NewSpeedLimiter creates a speed limiter
func NewSpeedLimiter(window time.Duration, delayAfter int, step, maxDelay time.Duration) *SpeedLimiter {
	return &SpeedLimiter{
		window:     window,
		delayAfter: delayAfter,
		step:       step,
		maxDelay:   maxDelay,
		hits:       make(map[string]*bucket),
	}
}

// Delay records one request for key and returns the delay to apply
// before handling it: step per request above the threshold, linear up to
// the cap.
func (l *SpeedLimiter) Delay(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.hits[key]
	if !ok || now.Sub(b.windowStart) >= l.window {
		l.hits[key] = &bucket{count: 1, windowStart: now}
		return 0
	}

	b.count++
	over := b.count - l.delayAfter
	if over <= 0 {
		return 0
	}

	delay := time.Duration(over) * l.step
	if delay > l.maxDelay {
		delay = l.maxDelay
	}
	return delay
}

// Sweep evicts expired buckets until ctx is cancelled
func (l *SpeedLimiter) Sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			now := time.Now()
			for key, b := range l.hits {
				if now.Sub(b.windowStart) >= l.window {
					delete(l.hits, key)
				}
			}
			l.mu.Unlock()
		}
	}
}
