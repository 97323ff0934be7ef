package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/obinnaokafor/stockyard/internal/domain"
)

// ItemInput — данные позиции из админской формы.
type ItemInput struct {
	TagNumber   string
	Breed       string
	AgeMonths   int
	WeightKG    float64
	HealthNotes string
	Price       decimal.Decimal
	Quantity    int
	Status      domain.AvailabilityStatus
	Images      []string
}

// Stats — сводка для админской панели.
type Stats struct {
	TotalItems     int
	AvailableItems int
	SoldItems      int
	TotalOrders    int
	Revenue        decimal.Decimal
}

// Service обслуживает витрину каталога и админские операции над позициями.
type Service struct {
	items  domain.ItemRepository
	orders domain.OrderRepository
	logger *log.Entry
}

// NewService создаёт сервис каталога.
func NewService(items domain.ItemRepository, orders domain.OrderRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "catalog")
	}
	return &Service{items: items, orders: orders, logger: logger}
}

// List возвращает каталог, новые позиции первыми.
func (s *Service) List(ctx context.Context) ([]domain.Item, error) {
	return s.items.List(ctx)
}

// Get возвращает позицию или ErrItemNotFound.
func (s *Service) Get(ctx context.Context, id string) (domain.Item, error) {
	return s.items.Get(ctx, id)
}

// Create сохраняет новую позицию. Статус выводится из остатка: нулевой
// остаток сразу даёт Sold независимо от формы.
func (s *Service) Create(ctx context.Context, input ItemInput) (domain.Item, error) {
	now := time.Now().UTC()
	item := domain.Item{
		ID:          uuid.NewString(),
		TagNumber:   input.TagNumber,
		Breed:       input.Breed,
		AgeMonths:   input.AgeMonths,
		WeightKG:    input.WeightKG,
		HealthNotes: input.HealthNotes,
		Price:       input.Price,
		Quantity:    input.Quantity,
		Status:      domain.DeriveAvailability(input.Quantity, input.Status),
		Images:      append([]string(nil), input.Images...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if errs := item.ValidateInvariants(); len(errs) > 0 {
		return domain.Item{}, errors.Join(errs...)
	}

	if err := s.items.Create(ctx, item); err != nil {
		return domain.Item{}, err
	}

	s.logger.WithFields(log.Fields{
		"item_id":    item.ID,
		"tag_number": item.TagNumber,
		"quantity":   item.Quantity,
	}).Info("catalog item created")

	return item, nil
}

// Update перезаписывает позицию данными формы. Правило доступности
// переигрывается от нового остатка; ручной Reserved/Pending сохраняется,
// пока остаток положительный.
func (s *Service) Update(ctx context.Context, id string, input ItemInput) (domain.Item, error) {
	item, err := s.items.Get(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}

	item.TagNumber = input.TagNumber
	item.Breed = input.Breed
	item.AgeMonths = input.AgeMonths
	item.WeightKG = input.WeightKG
	item.HealthNotes = input.HealthNotes
	item.Price = input.Price
	item.Quantity = input.Quantity
	status := input.Status
	if status == "" {
		status = item.Status
	}
	item.Status = domain.DeriveAvailability(input.Quantity, status)
	item.Images = append([]string(nil), input.Images...)

	if errs := item.ValidateInvariants(); len(errs) > 0 {
		return domain.Item{}, errors.Join(errs...)
	}

	if err := s.items.Update(ctx, item); err != nil {
		return domain.Item{}, err
	}

	s.logger.WithFields(log.Fields{
		"item_id":  item.ID,
		"quantity": item.Quantity,
		"status":   item.Status,
	}).Info("catalog item updated")

	return item, nil
}

// Delete жёстко удаляет позицию. Существующие заказы сохраняют её снимок.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.items.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("item_id", id).Info("catalog item deleted")
	return nil
}

// Stats собирает сводку по каталогу и продажам.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Revenue: decimal.Zero}
	stats.TotalItems = len(items)
	for _, item := range items {
		switch item.Status {
		case domain.AvailabilityAvailable:
			stats.AvailableItems++
		case domain.AvailabilitySold:
			stats.SoldItems++
		}
	}

	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats.TotalOrders = len(orders)
	for _, order := range orders {
		if order.PaymentStatus == domain.PaymentStatusSuccessful {
			stats.Revenue = stats.Revenue.Add(order.Amount)
		}
	}

	return stats, nil
}
