package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockfolio/internal/api"
	"stockfolio/internal/config"
	"stockfolio/internal/engine"
	"stockfolio/internal/quote"
	"stockfolio/internal/store"
	"stockfolio/internal/util"
)

func main() {
	cfgPath := "config/stockfolio.yaml"
	if p := os.Getenv("STOCKFOLIO_CONFIG"); p != "" {
		cfgPath = p
	}

	var cfg *config.Config
	if _, err := os.Stat(cfgPath); err == nil {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	} else {
		cfg = config.Default()
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	st, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	src := newQuoteSource(cfg)
	logger.Info("quote source selected", "provider", src.Name())

	var archive *store.SnapshotArchive
	if cfg.Storage.SnapshotDir != "" {
		archive = store.NewSnapshotArchive(cfg.Storage.SnapshotDir)
	}

	eng := engine.New(st, st, st, src, engine.Options{
		Trending:   cfg.Trending,
		MaxWorkers: cfg.Quotes.MaxWorkers,
		Archive:    archive,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewServer(eng, logger).Handler(),
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func newQuoteSource(cfg *config.Config) quote.Source {
	timeout := time.Duration(cfg.Quotes.TimeoutMS) * time.Millisecond
	switch cfg.Quotes.Provider {
	case "alpaca":
		return quote.NewAlpacaSource(
			cfg.Quotes.Alpaca.APIKey,
			cfg.Quotes.Alpaca.APISecret,
			cfg.Quotes.Alpaca.DataURL,
			cfg.Quotes.RateLimitPerMin,
			cfg.Quotes.Burst,
			timeout,
		)
	case "static":
		return quote.NewStaticSource(nil)
	default:
		return quote.NewYahooSource(cfg.Quotes.RateLimitPerMin, cfg.Quotes.Burst, timeout)
	}
}
