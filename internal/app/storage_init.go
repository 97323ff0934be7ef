package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/obinnaokafor/stockyard/internal/domain"
	"github.com/obinnaokafor/stockyard/internal/storage/memory"
	"github.com/obinnaokafor/stockyard/internal/storage/postgres"
)

// storageBundle объединяет репозитории одной реализации хранилища.
type storageBundle struct {
	items       domain.ItemRepository
	orders      domain.OrderRepository
	checkout    domain.CheckoutRepository
	idempotency domain.IdempotencyRepository

	// pg не nil только для Postgres-хранилища; используется для health check
	// и закрытия пула.
	pg *postgres.Store
}

func (b *storageBundle) close(logger *log.Entry) {
	if b == nil || b.pg == nil {
		return
	}
	if err := b.pg.Close(); err != nil {
		logger.WithError(err).Warn("failed to close postgres store")
	}
}

// initStorage создаёт репозитории согласно выбранному драйверу.
func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (*storageBundle, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		store := memory.NewStore()
		logger.Info("using in-memory storage")
		return &storageBundle{
			items:       memory.NewItemRepository(store),
			orders:      memory.NewOrderRepository(store),
			checkout:    memory.NewCheckoutRepository(store),
			idempotency: memory.NewIdempotencyRepository(),
		}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires a DSN")
		}

		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}

		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("ensure postgres schema: %w", err)
			}
		}

		logger.Info("using postgres storage")
		return &storageBundle{
			items:       postgres.NewItemRepository(store),
			orders:      postgres.NewOrderRepository(store),
			checkout:    postgres.NewCheckoutRepository(store),
			idempotency: postgres.NewIdempotencyRepository(store),
			pg:          store,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}
