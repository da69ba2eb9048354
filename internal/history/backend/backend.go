// Package backend opens the history store named in the config.
package backend

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"optionpricer/internal/config"
	"optionpricer/internal/history"
	"optionpricer/internal/history/redisstore"
	"optionpricer/internal/history/sqlstore"
)

// memoryCapacity bounds the in-process store.
const memoryCapacity = 1000

// Open returns the configured store. An empty driver means memory.
func Open(ctx context.Context, cfg config.Store, log *logrus.Logger) (history.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return history.NewMemoryStore(memoryCapacity), nil
	case "sqlite", "postgres":
		s, err := sqlstore.Open(cfg.Driver, cfg.DSN, log)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
		}
		return s, nil
	case "redis":
		s, err := redisstore.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
}
