package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"optionpricer/internal/config"
	"optionpricer/internal/history/backend"
	"optionpricer/internal/logging"
	"optionpricer/internal/metrics"
	"optionpricer/internal/pricing"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a JSON or YAML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatalf("store: %v", err)
	}

	svc := &pricing.Service{
		Grid:    pricing.NewGenerator(cfg.Engine),
		Store:   store,
		Log:     logger,
		Metrics: m,
		Now:     time.Now,
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.WithError(err).Warn("closing store")
		}
	}()

	s := &server{
		svc:           svc,
		log:           logger,
		metrics:       m,
		maxResolution: cfg.Engine.MaxResolution,
		historyLimit:  cfg.Store.HistoryLimit,
	}

	timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           s.handler(timeout),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      timeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.WithFields(log.Fields{
			"port":  cfg.Server.Port,
			"store": cfg.Store.Driver,
		}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
