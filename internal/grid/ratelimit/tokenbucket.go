package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"optionpricer/internal/grid"
)

// minRate keeps a bucket configured with no refill from dividing by zero.
const minRate = 1e-7

// TokenBucket admits up to burst calls at once and refills at rate tokens per second.
type TokenBucket struct {
	rate  float64
	burst float64

	mu      sync.Mutex
	tokens  float64
	updated time.Time
}

// NewTokenBucket returns a full bucket. burst is at least one.
func NewTokenBucket(rate float64, burst int) *TokenBucket {
	return &TokenBucket{
		rate:    math.Max(rate, minRate),
		burst:   float64(max(burst, 1)),
		tokens:  float64(max(burst, 1)),
		updated: time.Now(),
	}
}

// PerMinute builds a bucket from a requests-per-minute budget.
func PerMinute(rpm, burst int) *TokenBucket {
	return NewTokenBucket(float64(rpm)/60, burst)
}

// Wait blocks until a token is taken or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		wait, ok := tb.take(time.Now())
		if ok {
			return nil
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// take consumes a token, or reports how long until one accrues.
func (tb *TokenBucket) take(now time.Time) (time.Duration, bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if dt := now.Sub(tb.updated).Seconds(); dt > 0 {
		tb.tokens = math.Min(tb.burst, tb.tokens+dt*tb.rate)
		tb.updated = now
	}
	if tb.tokens >= 1 {
		tb.tokens--
		return 0, true
	}
	wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
	return max(wait, time.Millisecond), false
}

// TokenBucketGenerator takes a token before each grid generation.
// A nil bucket admits everything.
type TokenBucketGenerator struct {
	G  grid.Generator
	TB *TokenBucket
}

func (t *TokenBucketGenerator) Generate(ctx context.Context, req grid.Request) (*grid.Grid, error) {
	if t.TB != nil {
		if err := t.TB.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return t.G.Generate(ctx, req)
}
