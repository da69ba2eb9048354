package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Server struct {
	Port              string `json:"port" yaml:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
}

type Log struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Store selects the history backend: "memory", "sqlite", "postgres" or "redis".
type Store struct {
	Driver       string `json:"driver" yaml:"driver"`
	DSN          string `json:"dsn" yaml:"dsn"`
	RedisAddr    string `json:"redis_addr" yaml:"redis_addr"`
	HistoryLimit int    `json:"history_limit" yaml:"history_limit"`
}

type Engine struct {
	Workers              int `json:"workers" yaml:"workers"`
	MaxResolution        int `json:"max_resolution" yaml:"max_resolution"`
	CacheTTLSeconds      int `json:"cache_ttl_sec" yaml:"cache_ttl_sec"`
	CacheMaxItems        int `json:"cache_max_items" yaml:"cache_max_items"`
	MaxRequestsPerMinute int `json:"max_requests_per_minute" yaml:"max_requests_per_minute"`
	Burst                int `json:"burst" yaml:"burst"`
	MinRequestIntervalMs int `json:"min_request_interval_ms" yaml:"min_request_interval_ms"`
}

type Config struct {
	Server Server `json:"server" yaml:"server"`
	Log    Log    `json:"log" yaml:"log"`
	Store  Store  `json:"store" yaml:"store"`
	Engine Engine `json:"engine" yaml:"engine"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 10},
		Log:    Log{Level: "info", Format: "text"},
		Store: Store{
			Driver:       "memory",
			DSN:          "calculations.db",
			RedisAddr:    "localhost:6379",
			HistoryLimit: 10,
		},
		Engine: Engine{
			MaxResolution:        200,
			CacheTTLSeconds:      30,
			CacheMaxItems:        256,
			MaxRequestsPerMinute: 600,
			Burst:                20,
		},
	}
}

// Load reads config from path (JSON, or YAML by extension). If path is empty it
// tries config.json in the working directory; a missing file yields defaults.
// A .env file in the working directory is loaded first, and environment
// variables override file values.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Default(), fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := decode(path, b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func decode(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if x, ok := envInt("REQUEST_TIMEOUT_SEC"); ok && x > 0 {
		cfg.Server.RequestTimeoutSec = x
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		cfg.Store.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Store.RedisAddr = v
	}
	if x, ok := envInt("HISTORY_LIMIT"); ok && x > 0 {
		cfg.Store.HistoryLimit = x
	}
	if x, ok := envInt("GRID_WORKERS"); ok && x >= 0 {
		cfg.Engine.Workers = x
	}
	if x, ok := envInt("GRID_MAX_RESOLUTION"); ok && x > 0 {
		cfg.Engine.MaxResolution = x
	}
	if x, ok := envInt("GRID_CACHE_TTL_SEC"); ok && x >= 0 {
		cfg.Engine.CacheTTLSeconds = x
	}
	if x, ok := envInt("GRID_CACHE_MAX_ITEMS"); ok && x > 0 {
		cfg.Engine.CacheMaxItems = x
	}
	if x, ok := envInt("GRID_MAX_RPM"); ok && x >= 0 {
		cfg.Engine.MaxRequestsPerMinute = x
	}
	if x, ok := envInt("GRID_BURST"); ok && x > 0 {
		cfg.Engine.Burst = x
	}
	if x, ok := envInt("GRID_MIN_INTERVAL_MS"); ok && x >= 0 {
		cfg.Engine.MinRequestIntervalMs = x
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	var x int
	if _, err := fmt.Sscanf(v, "%d", &x); err != nil {
		return 0, false
	}
	return x, true
}
