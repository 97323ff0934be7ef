package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/obinnaokafor/stockyard/internal/health"
	"github.com/obinnaokafor/stockyard/internal/httpapi"
	"github.com/obinnaokafor/stockyard/internal/service/cart"
	"github.com/obinnaokafor/stockyard/internal/service/catalog"
	"github.com/obinnaokafor/stockyard/internal/service/idempotency"
	"github.com/obinnaokafor/stockyard/internal/service/orders"
	"github.com/obinnaokafor/stockyard/internal/service/payment"
	"github.com/obinnaokafor/stockyard/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run поднимает витрину: хранилище, шину событий, HTTP API и сервер метрик.
// Блокируется до отмены ctx или фатальной ошибки сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	storage, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer storage.close(logger)

	producer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(producer, logger)

	// NOTE: Using the mock gateway for development/demo purposes.
	// In production, replace with a real payment provider client.
	gateway := payment.NewMockGateway()

	orchestrator, err := buildOrchestrator(storage, gateway, producer, cfg, logger)
	if err != nil {
		return err
	}

	cartOptions := []cart.Option{cart.WithLogger(logger.WithField("component", "cart"))}
	if cfg.CartSnapshotPath != "" {
		cartOptions = append(cartOptions, cart.WithSnapshotPath(cfg.CartSnapshotPath))
	}

	ordersService := orders.NewService(storage.orders, logger.WithField("component", "orders"))
	if producer != nil {
		ordersService = orders.NewServiceWithPublisher(storage.orders, producer, logger.WithField("component", "orders"))
	}

	api := httpapi.NewServer(
		catalog.NewService(storage.items, storage.orders, logger.WithField("component", "catalog")),
		cart.NewService(cartOptions...),
		orchestrator,
		ordersService,
		cfg.AdminToken,
		logger.WithField("component", "httpapi"),
	)

	buildVersion, _, _ := version.Info()
	healthHandler := healthcheck.NewHandler(buildVersion)
	if storage.pg != nil {
		healthHandler.Register("postgres", storage.pg.Ping)
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	cleanupWorker := idempotency.NewCleanupWorker(
		storage.idempotency,
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	go cleanupWorker.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(srv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчики /metrics и health probes.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
