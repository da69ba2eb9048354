// Package ratelimit bounds how often grids are generated.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"optionpricer/internal/grid"
)

// MinInterval starts grid generations at least Interval apart.
// Each call reserves the next free start slot under the lock and sleeps until
// it, so concurrent callers queue one Interval after another.
type MinInterval struct {
	G        grid.Generator
	Interval time.Duration

	mu   sync.Mutex
	next time.Time // earliest start of the next unreserved slot
}

func (m *MinInterval) Generate(ctx context.Context, req grid.Request) (*grid.Grid, error) {
	if m.Interval <= 0 {
		return m.G.Generate(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slot := m.reserve(time.Now())
	if err := sleep(ctx, time.Until(slot)); err != nil {
		m.release(slot)
		return nil, err
	}
	return m.G.Generate(ctx, req)
}

func (m *MinInterval) reserve(now time.Time) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot := now
	if slot.Before(m.next) {
		slot = m.next
	}
	m.next = slot.Add(m.Interval)
	return slot
}

// release hands an abandoned slot back when nobody has queued behind it.
func (m *MinInterval) release(slot time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.next.Equal(slot.Add(m.Interval)) {
		m.next = slot
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
