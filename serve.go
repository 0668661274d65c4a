package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appCatalog "github.com/FacumendezBT/tfu3-andis2/internal/application/catalog"
	appCustomer "github.com/FacumendezBT/tfu3-andis2/internal/application/customer"
	appOrder "github.com/FacumendezBT/tfu3-andis2/internal/application/order"
	"github.com/FacumendezBT/tfu3-andis2/internal/config"
	"github.com/FacumendezBT/tfu3-andis2/internal/domain/customer"
	domainOrder "github.com/FacumendezBT/tfu3-andis2/internal/domain/order"
	"github.com/FacumendezBT/tfu3-andis2/internal/domain/product"
	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/eventsink"
	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/kafka"
	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/memory"
	infraobs "github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/observability"
	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/observability/oteltrace"
	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/observability/prometrics"
	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/observability/zaplogger"
	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/outbox"
	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/postgres"
	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/redis"
	"github.com/FacumendezBT/tfu3-andis2/internal/observability"
	"github.com/FacumendezBT/tfu3-andis2/internal/pkg/logging"
	httppresentation "github.com/FacumendezBT/tfu3-andis2/internal/presentation/http"
	workerpresentation "github.com/FacumendezBT/tfu3-andis2/internal/presentation/worker"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

// backend is the store selected by configuration.
type backend struct {
	tx         appOrder.TxRunner
	products   product.Repository
	categories product.CategoryRepository
	customers  customer.Repository
	orders     domainOrder.Repository
	health     httppresentation.Pinger
	close      func()
}

func openBackend(ctx context.Context, cfg config.Config, log observability.Logger) (*backend, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, err
		}
		if cfg.DBAutoMigrate {
			if err := store.Migrate(ctx); err != nil {
				store.Close()
				return nil, err
			}
			log.Info("schema_migrated")
		}
		return &backend{
			tx:         store,
			products:   store.Products(),
			categories: store.Categories(),
			customers:  store.Customers(),
			orders:     store.Orders(),
			health:     store,
			close:      store.Close,
		}, nil
	default:
		store := memory.NewStore()
		return &backend{
			tx:         store,
			products:   store.Products(),
			categories: store.Categories(),
			customers:  store.Customers(),
			orders:     store.Orders(),
			health:     store,
			close:      store.Close,
		}, nil
	}
}

func runServe(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, err := logging.NewLogger(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	obs := infraobs.NewStandard(
		oteltrace.New(cfg.ServiceName),
		zaplogger.New(baseLogger),
		prometrics.New(reg, "", ""),
	)
	systemLogger := obs.Logger().With(observability.F("component", "main"))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openBackend(ctx, cfg, systemLogger)
	if err != nil {
		systemLogger.Error("store_open_failed", observability.F("driver", cfg.StoreDriver), observability.F("error", err))
		return err
	}
	defer store.close()
	systemLogger.Info("store_opened", observability.F("driver", cfg.StoreDriver))

	var (
		idem  appOrder.IdempotencyStore = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
		sinks []eventsink.Sink
	)
	if cfg.RedisURL != "" {
		client, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			systemLogger.Error("redis_connect_failed", observability.F("error", err))
			return err
		}
		defer closeRedis(client, systemLogger)
		idem = redis.NewIdempotencyStore(client, cfg.IdempotencyTTL)
		sinks = append(sinks, redis.NewSink(client, cfg.RedisChannel))
		systemLogger.Info("redis_connected", observability.F("channel", cfg.RedisChannel))
	}
	if brokers := kafka.ParseBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		sinks = append(sinks, kafka.NewSink(brokers, cfg.KafkaTopic))
		systemLogger.Info("kafka_sink_enabled", observability.F("brokers", brokers), observability.F("topic", cfg.KafkaTopic))
	}
	if len(sinks) == 0 {
		sinks = append(sinks, eventsink.NewLogSink(obs.Logger()))
	}

	bus := outbox.NewBus(obs, outbox.Options{})
	relay := workerpresentation.NewRelay(obs, sinks...)
	relay.Register(bus, domainOrder.EventCreated, domainOrder.EventStatusChanged, domainOrder.EventDeleted)
	bus.Start(ctx)

	handler := httppresentation.NewHandler(httppresentation.Deps{
		Orders: appOrder.NewProcessor(appOrder.Deps{
			Tx:          store.tx,
			Orders:      store.orders,
			Idempotency: idem,
			Publisher:   bus,
			Obs:         obs,
		}),
		Catalog:   appCatalog.NewService(store.products, store.categories, obs),
		Customers: appCustomer.NewService(store.customers, obs),
		Health:    store.health,
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Obs:       obs,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		systemLogger.Info("http_server_start", observability.F("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			systemLogger.Error("http_server_error", observability.F("error", err))
			stopBackground(bus, relay, cfg.ShutdownTimeout, systemLogger)
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error", observability.F("error", err))
	} else {
		systemLogger.Info("http_server_stopped")
	}
	stopBackground(bus, relay, cfg.ShutdownTimeout, systemLogger)
	return nil
}

// stopBackground drains the event bus and then closes the sinks it feeds.
func stopBackground(bus *outbox.Bus, relay *workerpresentation.Relay, timeout time.Duration, log observability.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := bus.Stop(ctx); err != nil {
		log.Warn("event_bus_stop_timeout", observability.F("error", err))
	}
	if err := relay.Close(); err != nil {
		log.Warn("event_sink_close_failed", observability.F("error", err))
	}
}

func closeRedis(client *goredis.Client, log observability.Logger) {
	if err := client.Close(); err != nil {
		log.Warn("redis_close_failed", observability.F("error", err))
	}
}
