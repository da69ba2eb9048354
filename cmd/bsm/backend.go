package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"optionpricer/internal/bsm"
	"optionpricer/internal/client"
	"optionpricer/internal/config"
	"optionpricer/internal/grid"
	"optionpricer/internal/history"
	"optionpricer/internal/history/backend"
	"optionpricer/internal/httpx"
	"optionpricer/internal/logging"
	"optionpricer/internal/metrics"
	"optionpricer/internal/pricing"
)

// pricer is what the commands need. *pricing.Service satisfies it directly and
// remote adapts the API client.
type pricer interface {
	Price(ctx context.Context, q bsm.Quote, t bsm.OptionType) (float64, error)
	Greeks(ctx context.Context, q bsm.Quote, t bsm.OptionType) (bsm.Greeks, error)
	Calculate(ctx context.Context, q bsm.Quote, save bool) (bsm.Valuation, error)
	GenerateGrid(ctx context.Context, req grid.Request) (*grid.Grid, error)
	History(ctx context.Context, limit int) ([]history.Record, error)
	Close() error
}

type remote struct {
	*client.Client
}

func (r remote) GenerateGrid(ctx context.Context, req grid.Request) (*grid.Grid, error) {
	return r.Grid(ctx, req)
}

func (remote) Close() error { return nil }

type app struct {
	out        io.Writer
	configPath string
	serverURL  string

	cfg config.Config
	log *log.Logger
	p   pricer
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg = cfg
	a.log = logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	if a.serverURL != "" {
		timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second
		a.p = remote{client.New(
			client.WithBaseURL(strings.TrimSpace(a.serverURL)),
			client.WithHTTPClient(httpx.New(timeout)),
		)}
		a.log.WithField("server", a.serverURL).Debug("using remote pricer")
		return nil
	}

	store, err := backend.Open(ctx, cfg.Store, a.log)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	a.p = &pricing.Service{
		Grid:    pricing.NewGenerator(cfg.Engine),
		Store:   store,
		Log:     a.log,
		Metrics: metrics.New(),
		Now:     time.Now,
	}
	a.log.WithField("store", cfg.Store.Driver).Debug("using local pricer")
	return nil
}

func (a *app) close() error {
	if a.p == nil {
		return nil
	}
	err := a.p.Close()
	a.p = nil
	return err
}
