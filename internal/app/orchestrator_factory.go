package app

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/obinnaokafor/stockyard/internal/domain"
	"github.com/obinnaokafor/stockyard/internal/messaging/kafka"
	"github.com/obinnaokafor/stockyard/internal/service/checkout"
)

// buildOrchestrator собирает чекаут-оркестратор с учётом опциональной шины
// событий и настроенной политики цены.
func buildOrchestrator(
	storage *storageBundle,
	gateway domain.PaymentGateway,
	producer *kafka.Producer,
	cfg Config,
	logger *log.Entry,
) (*checkout.Orchestrator, error) {
	var orchestrator *checkout.Orchestrator
	if producer != nil {
		orchestrator = checkout.NewOrchestratorWithPublisher(
			storage.items,
			storage.checkout,
			storage.idempotency,
			gateway,
			producer,
			logger.WithField("component", "checkout"),
		)
	} else {
		orchestrator = checkout.NewOrchestrator(
			storage.items,
			storage.checkout,
			storage.idempotency,
			gateway,
			logger.WithField("component", "checkout"),
		)
	}

	if cfg.PricePolicy != "" {
		policy := domain.PricePolicy(cfg.PricePolicy)
		if err := orchestrator.SetPricePolicy(policy); err != nil {
			return nil, fmt.Errorf("price policy %q: %w", cfg.PricePolicy, err)
		}
	}

	return orchestrator, nil
}
