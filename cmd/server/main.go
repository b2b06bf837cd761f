package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"bothub/internal/audit"
	"bothub/internal/platform/config"
	"bothub/internal/platform/httpserver"
	"bothub/internal/platform/logger"
	"bothub/internal/platform/postgres"
	platformredis "bothub/internal/platform/redis"
	"bothub/internal/registry/cache"
	"bothub/internal/registry/handler"
	registrymetrics "bothub/internal/registry/metrics"
	"bothub/internal/registry/service"
	"bothub/internal/registry/store"
	httptransport "bothub/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checks := map[string]httptransport.HealthCheck{}

	st, tx, closeStore, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer closeStore()
	if db, ok := st.(*store.PostgresStore); ok {
		checks["database"] = db.Ping
	}

	publisher := audit.NewPublisher(0)
	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(registrymetrics.New(reg)),
		service.WithAuditPublisher(publisher),
	}

	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rc != nil {
		defer rc.Close()
		opts = append(opts, service.WithAuthCache(cache.NewRedisAuthCache(rc.Client, cache.WithTTL(cfg.VerifyCacheTTL))))
		checks["redis"] = rc.Health
		log.Info("verification cache enabled", "ttl", cfg.VerifyCacheTTL)
	}

	sink, closeSink, err := openAuditSink(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeSink()

	svc, err := service.New(st, tx, opts...)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Registry:     handler.New(svc, log),
		Logger:       log,
		AdminToken:   cfg.AdminToken,
		Gatherer:     reg,
		Registerer:   reg,
		HealthChecks: checks,
	})
	if cfg.AdminToken == "" {
		log.Warn("ADMIN_API_TOKEN not set, directory endpoints are unauthenticated")
	}
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := audit.NewWorker(sink, publisher.Events(), log).Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.Info("starting bothub registry", "addr", cfg.Addr)
		defer log.Info("http server stopped")
		return httpserver.Serve(gctx, srv, cfg.ShutdownTimeout)
	})
	return g.Wait()
}

// openStore connects to PostgreSQL when a DSN is configured and falls back to
// the in-memory store otherwise.
func openStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (service.Store, service.StoreTx, func(), error) {
	if cfg.DSN == "" {
		log.Warn("no database configured, using in-memory store; data is lost on exit")
		mem := store.NewInMemory()
		return mem, mem, func() {}, nil
	}

	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := store.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	log.Info("connected to postgres", "driver", cfg.Driver, "max_open_conns", cfg.MaxOpenConns)
	return store.NewPostgres(db), store.NewPostgresTx(db, cfg.TxTimeout), func() { _ = db.Close() }, nil
}

// openAuditSink publishes to Kafka when brokers are configured and to the log
// otherwise.
func openAuditSink(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (audit.Sink, func(), error) {
	if len(cfg.Brokers) == 0 {
		return audit.NewLogSink(log), func() {}, nil
	}
	ks, err := audit.NewKafkaSink(ctx, cfg.Brokers, cfg.AuditTopic)
	if err != nil {
		return nil, nil, err
	}
	if err := ks.EnsureTopic(ctx, 1, 1); err != nil {
		log.Warn("could not ensure audit topic", "topic", cfg.AuditTopic, "error", err)
	}
	log.Info("audit events published to kafka", "topic", cfg.AuditTopic)
	return ks, ks.Close, nil
}
