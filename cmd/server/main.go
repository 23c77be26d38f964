package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"ExchangeQuotesService/internal/api"
	"ExchangeQuotesService/internal/clock"
	"ExchangeQuotesService/internal/config"
	"ExchangeQuotesService/internal/db"
	"ExchangeQuotesService/internal/logger"
	"ExchangeQuotesService/internal/metrics"
	"ExchangeQuotesService/internal/model"
	"ExchangeQuotesService/internal/rates"
	"ExchangeQuotesService/internal/service"
	"ExchangeQuotesService/internal/store"
	"ExchangeQuotesService/internal/tools"
	"ExchangeQuotesService/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const jobBufferSize = 32

func newRateCache(ctx context.Context, cfg *config.App, clk clock.Clock, log logrus.FieldLogger) (rates.Cache, func(), error) {
	if cfg.Redis.URL == "" {
		log.Info("using in-memory rate cache")
		return rates.NewMemoryCache(clk), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.WithField("addr", opts.Addr).Info("using redis rate cache")
	return rates.NewRedisCache(client, cfg.Redis.KeyPrefix), func() { client.Close() }, nil
}

func runServer() error {
	cfg, err := config.Load(config.Lookup("ENV_FILE", ".env"))
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limits, err := tools.LoadLimits(cfg.Quote.LimitsPath)
	if err != nil {
		return fmt.Errorf("load limits: %w", err)
	}

	dialect, err := db.DialectFor(cfg.Database.Driver)
	if err != nil {
		return err
	}
	if cfg.Database.MaxOpenConns > 0 && dialect.MaxOpenConns == 0 {
		dialect.MaxOpenConns = cfg.Database.MaxOpenConns
	}
	database, err := db.Open(ctx, dialect, cfg.Database.URL, cfg.Database.ConnectAttempts, log)
	if err != nil {
		return err
	}
	defer database.Close()

	clk := clock.Real{}
	exchanges, err := store.NewExchangeStore(database, dialect, clk)
	if err != nil {
		return err
	}
	defer exchanges.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	cache, closeCache, err := newRateCache(ctx, cfg, clk, log)
	if err != nil {
		return err
	}
	defer closeCache()

	upstream := rates.NewHTTPSource(cfg.Rates.URL, cfg.Rates.Timeout, cfg.Rates.RequestsPerSecond, cfg.Rates.Burst)
	source := rates.NewCachedSource(upstream, cache, cfg.Rates.CacheTTL, m, log)
	srv := service.NewExchangeService(exchanges, source, limits, cfg.Quote.TTL, clk)

	var wg sync.WaitGroup
	jobChan := make(chan worker.RefreshJob, jobBufferSize)
	if cfg.Rates.RefreshInterval > 0 {
		for i := 0; i < cfg.Rates.Workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				worker.StartWorker(ctx, jobChan, source, log)
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Schedule(ctx, jobChan, worker.Pairs(model.Currencies()), cfg.Rates.RefreshInterval, log)
		}()
	}

	h := &api.Handler{Srv: srv, Log: log, Metrics: m}
	router := h.Routes()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Server listening on %s...", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received, stopping server...")
	case err := <-serveErr:
		stop()
		wg.Wait()
		return fmt.Errorf("listen: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server Shutdown")
	}

	wg.Wait()
	log.Info("All workers done. Server stopped.")
	return nil
}

func main() {
	if err := runServer(); err != nil {
		logrus.Fatalf("Startup error: %v", err)
	}
}
