// Package pricing ties the model, the grid generator and the history store together.
package pricing

//go:generate mockgen -package=pricing_test -destination=mock_store_test.go -source=../history/history.go Store

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"optionpricer/internal/bsm"
	"optionpricer/internal/grid"
	"optionpricer/internal/history"
	"optionpricer/internal/metrics"
)

// MaxHistoryLimit caps a single history read.
const MaxHistoryLimit = 1000

// Service is the single entry point for pricing, grids and history.
// Store and Metrics are optional.
type Service struct {
	Grid    grid.Generator
	Store   history.Store
	Log     *logrus.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// New builds a Service with the default grid engine, an in-memory store and a wall clock.
func New(log *logrus.Logger, m *metrics.Metrics) *Service {
	return &Service{
		Grid:    &grid.Engine{},
		Store:   history.NewMemoryStore(MaxHistoryLimit),
		Log:     log,
		Metrics: m,
		Now:     time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) log() *logrus.Logger {
	if s.Log != nil {
		return s.Log
	}
	return logrus.StandardLogger()
}

func (s *Service) count(op string) {
	if s.Metrics != nil {
		s.Metrics.CalculationsTotal.WithLabelValues(op).Inc()
	}
}

// Calculate values both legs. When save is set the result is appended to the
// store; a store failure is logged and does not affect the returned valuation.
func (s *Service) Calculate(ctx context.Context, q bsm.Quote, save bool) (bsm.Valuation, error) {
	v, err := bsm.Value(q)
	if err != nil {
		return bsm.Valuation{}, err
	}
	s.count("calculate")

	if save && s.Store != nil {
		if err := s.Store.Append(ctx, history.NewRecord(s.now(), v)); err != nil {
			s.log().WithContext(ctx).WithFields(logrus.Fields{
				"spot":   q.Spot,
				"strike": q.Strike,
				"expiry": q.Expiry,
			}).WithError(err).Warn("failed to save calculation")
			if s.Metrics != nil {
				s.Metrics.StoreFailures.WithLabelValues("append").Inc()
			}
		}
	}
	return v, nil
}

// Price values one leg.
func (s *Service) Price(_ context.Context, q bsm.Quote, t bsm.OptionType) (float64, error) {
	p, err := bsm.Price(q, t)
	if err != nil {
		return 0, err
	}
	s.count("price")
	return p, nil
}

// Greeks returns the sensitivities of one leg.
func (s *Service) Greeks(_ context.Context, q bsm.Quote, t bsm.OptionType) (bsm.Greeks, error) {
	g, err := bsm.GreeksFor(q, t)
	if err != nil {
		return bsm.Greeks{}, err
	}
	s.count("greeks")
	return g, nil
}

// GenerateGrid runs the configured grid generator.
func (s *Service) GenerateGrid(ctx context.Context, req grid.Request) (*grid.Grid, error) {
	gen := s.Grid
	if gen == nil {
		gen = &grid.Engine{}
	}
	start := time.Now()
	g, err := gen.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.Metrics != nil {
		s.Metrics.GridsTotal.WithLabelValues(string(g.Mode)).Inc()
		s.Metrics.GridCellsTotal.Add(float64(g.Cells()))
		s.Metrics.GridDuration.Observe(time.Since(start).Seconds())
	}
	s.log().WithContext(ctx).WithFields(logrus.Fields{
		"type":       req.Type,
		"resolution": req.Resolution,
		"mode":       g.Mode,
		"elapsed":    time.Since(start),
	}).Debug("grid generated")
	return g, nil
}

// History returns the most recent records, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]history.Record, error) {
	if s.Store == nil || limit <= 0 {
		return []history.Record{}, nil
	}
	limit = min(limit, MaxHistoryLimit)
	recs, err := s.Store.Recent(ctx, limit)
	if err != nil {
		if s.Metrics != nil {
			s.Metrics.StoreFailures.WithLabelValues("recent").Inc()
		}
		return nil, err
	}
	return recs, nil
}

// Close releases the store.
func (s *Service) Close() error {
	if s.Store == nil {
		return nil
	}
	return s.Store.Close()
}
