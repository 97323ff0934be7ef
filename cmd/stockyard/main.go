package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/obinnaokafor/stockyard/internal/app"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// readConfig формирует конфигурацию приложения из переменных окружения.
func readConfig() app.Config {
	cfg := app.DefaultConfig()
	if v := os.Getenv("STOCKYARD_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("STOCKYARD_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	driverSet := false
	if v := os.Getenv("STOCKYARD_STORAGE_DRIVER"); v != "" {
		cfg.StorageDriver = app.StorageDriver(v)
		driverSet = true
	}
	if v := os.Getenv("STOCKYARD_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
		// Наличие DSN переключает хранилище, если драйвер не задан явно.
		if !driverSet {
			cfg.StorageDriver = app.StorageDriverPostgres
		}
	}
	if v := os.Getenv("STOCKYARD_POSTGRES_AUTO_MIGRATE"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.PostgresAutoMigrate = parsed
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = v
	}
	if v := os.Getenv("STOCKYARD_ADMIN_TOKEN"); v != "" {
		cfg.AdminToken = v
	}
	if v := os.Getenv("STOCKYARD_PRICE_POLICY"); v != "" {
		cfg.PricePolicy = v
	}
	if v := os.Getenv("STOCKYARD_CART_SNAPSHOT"); v != "" {
		cfg.CartSnapshotPath = v
	}
	if v := os.Getenv("STOCKYARD_IDEMPOTENCY_CLEANUP_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.IdempotencyCleanupInterval = parsed
		}
	}
	return cfg
}

func main() {
	setupLogger()
	cfg := readConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
		"storage":      cfg.StorageDriver,
		"price_policy": cfg.PricePolicy,
	}).Info("запускаем витрину Stockyard")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("Stockyard остановлен")
}
