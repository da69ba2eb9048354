package cache

//go:generate mockgen -package=cache_test -destination=mock_generator_test.go -source=../grid.go Generator

import (
	"context"
	"sync"
	"time"

	"optionpricer/internal/grid"
)

// entry stores one generated grid with its expiry.
type entry struct {
	expiresAt time.Time
	grid      *grid.Grid
}

// Generator caches grids per request key for a TTL.
// Grids are deterministic in their request, so a hit is always exact.
// Errors are not cached.
type Generator struct {
	G        grid.Generator
	TTL      time.Duration
	MaxItems int

	// Now overrides the clock in tests.
	Now func() time.Time

	mu    sync.RWMutex
	items map[string]entry // key: grid.Request.Key()
}

func (c *Generator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Generate returns a cached grid when one is still valid.
func (c *Generator) Generate(ctx context.Context, req grid.Request) (*grid.Grid, error) {
	if c.TTL <= 0 {
		return c.G.Generate(ctx, req)
	}

	key := req.Key()
	now := c.now()

	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if ok && now.Before(e.expiresAt) {
		return e.grid, nil
	}

	g, err := c.G.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.items == nil {
		c.items = make(map[string]entry)
	}
	c.items[key] = entry{expiresAt: now.Add(c.TTL), grid: g}
	// best-effort cap cache size
	if c.MaxItems > 0 && len(c.items) > c.MaxItems {
		// remove expired first, then arbitrary
		for k, v := range c.items {
			if now.After(v.expiresAt) {
				delete(c.items, k)
			}
		}
		for k := range c.items {
			if len(c.items) <= c.MaxItems {
				break
			}
			if k != key {
				delete(c.items, k)
			}
		}
	}
	c.mu.Unlock()
	return g, nil
}

// Len reports how many entries are held, expired or not.
func (c *Generator) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
