package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Fresh-Industries/InflateMate-sub000/internal/app"
	"github.com/Fresh-Industries/InflateMate-sub000/internal/clock"
	"github.com/Fresh-Industries/InflateMate-sub000/internal/config"
	"github.com/Fresh-Industries/InflateMate-sub000/internal/events"
	"github.com/Fresh-Industries/InflateMate-sub000/internal/storage/postgres"
	transporthttp "github.com/Fresh-Industries/InflateMate-sub000/internal/transport/http"
	"github.com/Fresh-Industries/InflateMate-sub000/migrations"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	config.LoadEnvFile(logger)
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	var sink events.Sink = events.NopSink{}
	if cfg.AMQPURL != "" {
		amqpSink, err := events.NewAMQPSink(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Fatal("connect to broker", zap.Error(err))
		}
		defer func() { _ = amqpSink.Close() }()
		sink = amqpSink
	}
	logSink := events.NewLogSink(logger, sink)

	clk := clock.NewSystem()
	bookingRepo := postgres.NewBookingRepository(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)

	cache := app.NewCachedAvailability(bookingRepo, clk, cfg.AvailabilityCacheTTL)
	planner := app.NewPlanner(catalogRepo, cache, clk)
	ledger := app.NewLedger(bookingRepo, planner, logSink, clk,
		app.WithMaxCommitAttempts(cfg.CommitMaxAttempts),
		app.WithCacheInvalidator(cache),
	)
	lifecycle := app.NewLifecycle(bookingRepo, logSink, clk, cache)
	catalogSvc := app.NewCatalogService(catalogRepo, clk)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/quotes", transporthttp.HandleCreateQuote(planner))
	mux.Handle("/bookings", transporthttp.HandleCreateBooking(ledger))
	mux.Handle("/bookings/", transporthttp.HandleBooking(bookingRepo, lifecycle))
	mux.Handle("/admin/items", transporthttp.HandleAdminItems(catalogSvc))
	mux.Handle("/admin/items/", transporthttp.HandleAdminItemRetire(catalogSvc))
	mux.Handle("/admin/policy", transporthttp.HandleAdminPolicy(catalogSvc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	corsOrigins := parseCSV(cfg.CORSOrigins)
	handler := transporthttp.RequestLogger(transporthttp.CORS(corsOrigins, mux), logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	logger.Info("api listening", zap.String("port", cfg.Port))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func parseCSV(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
