package backend_test

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"optionpricer/internal/config"
	"optionpricer/internal/history"
	"optionpricer/internal/history/backend"
	"optionpricer/internal/history/redisstore"
	"optionpricer/internal/history/sqlstore"
	"optionpricer/internal/logging"
)

func TestOpen(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	tests := []struct {
		name string
		cfg  config.Store
		want any
	}{
		{"default", config.Store{}, &history.MemoryStore{}},
		{"memory", config.Store{Driver: "memory"}, &history.MemoryStore{}},
		{"sqlite", config.Store{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "h.db")}, &sqlstore.Store{}},
		{"redis", config.Store{Driver: "redis", RedisAddr: mr.Addr()}, &redisstore.Store{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := backend.Open(t.Context(), tt.cfg, logging.Discard())
			require.NoError(t, err)
			defer s.Close()
			require.IsType(t, tt.want, s)

			require.NoError(t, s.Append(t.Context(), history.Record{Spot: 1, Strike: 1}))
			got, err := s.Recent(t.Context(), 5)
			require.NoError(t, err)
			require.Len(t, got, 1)
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := backend.Open(t.Context(), config.Store{Driver: "mongo"}, nil)
	require.ErrorContains(t, err, "unsupported store driver")
}
