package app

import "time"

// StorageDriver выбирает реализацию хранилища витрины.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool

	// KafkaBrokers — список брокеров через запятую; пустая строка отключает шину.
	KafkaBrokers string

	// AdminToken защищает админские ручки; пустой токен закрывает админку.
	AdminToken string

	// PricePolicy — commit или quoted.
	PricePolicy string

	// CartSnapshotPath — путь JSON-снапшота корзин; пустой отключает персистентность.
	CartSnapshotPath string

	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                    ":8080",
		MetricsAddr:                 ":9090",
		StorageDriver:               StorageDriverMemory,
		PostgresAutoMigrate:         true,
		PricePolicy:                 "commit",
		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,
	}
}
