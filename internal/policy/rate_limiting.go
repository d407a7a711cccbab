// Package policy holds admission policies applied at the service surfaces.
package policy

import (
	"sync"
	"time"
)

// RateLimiter throttles admissions per client with one token bucket per key.
// A nil or disabled limiter allows everything.
type RateLimiter struct {
	perSecond int
	buckets   map[string]*tokenBucket
	mu        sync.RWMutex
	now       func() time.Time
}

// tokenBucket implements a simple token bucket for rate limiting
type tokenBucket struct {
	capacity   int       // Maximum tokens
	tokens     int       // Current tokens
	refillRate int       // Tokens per second
	lastRefill time.Time // Last time tokens were refilled
	mu         sync.Mutex
}

// NewRateLimiter creates a limiter allowing perSecond admissions per key.
// perSecond <= 0 disables it.
func NewRateLimiter(perSecond int) *RateLimiter {
	return &RateLimiter{
		perSecond: perSecond,
		buckets:   make(map[string]*tokenBucket),
		now:       time.Now,
	}
}

// Enabled reports whether the limiter rejects anything
func (p *RateLimiter) Enabled() bool {
	return p != nil && p.perSecond > 0
}

// Allow takes a token for key at the current wall clock time
func (p *RateLimiter) Allow(key string) bool {
	if !p.Enabled() {
		return true
	}
	return p.AllowAt(key, p.now())
}

// AllowAt takes a token for key at the given time
func (p *RateLimiter) AllowAt(key string, at time.Time) bool {
	if !p.Enabled() {
		return true
	}

	bucket := p.bucket(key, at)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	bucket.refill(at)
	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}
	return false
}

// Remaining returns the tokens left for key at the given time, -1 when the
// limiter is disabled
func (p *RateLimiter) Remaining(key string, at time.Time) int {
	if !p.Enabled() {
		return -1
	}

	p.mu.RLock()
	bucket, exists := p.buckets[key]
	p.mu.RUnlock()
	if !exists {
		return p.perSecond
	}

	bucket.mu.Lock()
	defer bucket.mu.Unlock()
	bucket.refill(at)
	return bucket.tokens
}

func (p *RateLimiter) bucket(key string, at time.Time) *tokenBucket {
	p.mu.RLock()
	bucket, exists := p.buckets[key]
	p.mu.RUnlock()
	if exists {
		return bucket
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Double-check after acquiring write lock
	if bucket, exists = p.buckets[key]; !exists {
		bucket = &tokenBucket{
			capacity:   p.perSecond,
			tokens:     p.perSecond,
			refillRate: p.perSecond,
			lastRefill: at,
		}
		p.buckets[key] = bucket
	}
	return bucket
}

// refill adds whole tokens for the time elapsed; caller holds b.mu
func (b *tokenBucket) refill(at time.Time) {
	tokensToAdd := int(at.Sub(b.lastRefill).Seconds() * float64(b.refillRate))
	if tokensToAdd <= 0 {
		return
	}
	b.tokens = min(b.tokens+tokensToAdd, b.capacity)
	b.lastRefill = at
}
