package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dandantas/pulse/internal/config"
	"github.com/dandantas/pulse/internal/database"
	"github.com/dandantas/pulse/internal/database/postgres"
	"github.com/dandantas/pulse/internal/database/sqlite"
	"github.com/dandantas/pulse/internal/events"
	"github.com/dandantas/pulse/internal/handler"
	"github.com/dandantas/pulse/internal/model"
	"github.com/dandantas/pulse/internal/probe"
	"github.com/dandantas/pulse/internal/scheduler"
	"github.com/dandantas/pulse/internal/service"
	"github.com/dandantas/pulse/internal/worker"
	"github.com/dandantas/pulse/pkg/middleware"
)

const version = "1.0.0"

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logCloser := config.InitLogger(cfg)
	defer logCloser.Close()

	if err := run(cfg); err != nil {
		slog.Error("Checker stopped with error", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	slog.Info("Starting Pulse Checker",
		"version", version,
		"driver", cfg.DatabaseDriver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.Discard{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		slog.Info("Publishing result events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	// Persistence runs on a bounded pool sized like the database pool
	pool := worker.NewWorkerPool(cfg.DBPoolSize, cfg.PingConcurrency+cfg.WebsiteConcurrency)
	pool.Start()

	sink := service.NewResultSink(store, pool, publisher)
	probes := map[model.MonitorType]scheduler.Probe{
		model.MonitorTypePing: {
			Prober:      probe.NewPingProbe(),
			Timeout:     cfg.PingTimeout,
			Concurrency: cfg.PingConcurrency,
		},
		model.MonitorTypeWebsite: {
			Prober:      probe.NewWebsiteProbe(probe.NewHTTPClient(cfg.ConnectionPoolSize)),
			Timeout:     cfg.WebsiteTimeout,
			Concurrency: cfg.WebsiteConcurrency,
		},
	}

	sched := scheduler.NewScheduler(cfg, store, sink, probes)

	cleanup := func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		sched.Stop(shutdownCtx)
		pool.Stop()
		return multierr.Combine(
			publisher.Close(),
			store.Close(shutdownCtx),
		)
	}

	if err := sched.Initialize(ctx); err != nil {
		return multierr.Append(fmt.Errorf("failed to initialize scheduler: %w", err), cleanup())
	}

	g, gctx := errgroup.WithContext(ctx)

	sched.Start(gctx)

	if cfg.HTTPEnabled {
		server := newServer(cfg, store, sched)

		g.Go(func() error {
			slog.Info("Starting HTTP server", "port", cfg.HTTPPort)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			slog.Info("Shutting down HTTP server...")
			return server.Shutdown(shutdownCtx)
		})
	}

	<-gctx.Done()
	slog.Info("Received shutdown signal, initiating graceful shutdown")

	err = multierr.Combine(g.Wait(), cleanup())

	slog.Info("Pulse Checker stopped")
	return err
}

// openStore connects to the configured backing store and prepares its schema
func openStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		store, err := postgres.New(ctx, cfg.DatabaseURL, cfg.DBPoolSize)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		return store, nil

	case config.DriverSQLite:
		store, err := sqlite.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		return store, nil

	default:
		db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTimeout, cfg.DBPoolSize)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		if err := database.CreateIndexes(ctx, db); err != nil {
			return nil, multierr.Append(
				fmt.Errorf("failed to create indexes: %w", err),
				db.Disconnect(context.Background()),
			)
		}
		return database.NewMongoStore(db), nil
	}
}

func newServer(cfg *config.Config, store database.Store, sched *scheduler.Scheduler) *http.Server {
	monitors := service.NewMonitorService(store)
	router := handler.NewRouter(
		handler.NewMonitorHandler(monitors),
		handler.NewBadgeHandler(monitors),
		handler.NewStatsHandler(sched),
		handler.NewHealthHandler(store, cfg.DatabaseDriver, version),
		middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins, cfg.CORSMaxAge),
	)

	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}
}
