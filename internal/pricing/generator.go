package pricing

import (
	"time"

	"optionpricer/internal/config"
	"optionpricer/internal/grid"
	"optionpricer/internal/grid/cache"
	"optionpricer/internal/grid/ratelimit"
)

// NewGenerator wraps the grid engine in the configured limiter and cache.
// The cache sits outermost so hits do not consume rate-limit tokens.
func NewGenerator(cfg config.Engine) grid.Generator {
	var g grid.Generator = &grid.Engine{Workers: cfg.Workers}

	// Prefer token bucket with burst if RPM is set, otherwise use min-interval
	if cfg.MaxRequestsPerMinute > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		g = &ratelimit.TokenBucketGenerator{G: g, TB: ratelimit.PerMinute(cfg.MaxRequestsPerMinute, burst)}
	} else if cfg.MinRequestIntervalMs > 0 {
		g = &ratelimit.MinInterval{G: g, Interval: time.Duration(cfg.MinRequestIntervalMs) * time.Millisecond}
	}

	if cfg.CacheTTLSeconds > 0 {
		g = &cache.Generator{G: g, TTL: time.Duration(cfg.CacheTTLSeconds) * time.Second, MaxItems: cfg.CacheMaxItems}
	}
	return g
}
