package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/obinnaokafor/stockyard/internal/domain"
)

// checkoutRepositoryInMemory — in-memory реализация атомарного коммита.
// Глобальный мьютекс Store линеаризует коммиты так же, как это делает
// транзакция с условным UPDATE в PostgreSQL-реализации.
type checkoutRepositoryInMemory struct {
	store *Store
}

// NewCheckoutRepository возвращает in-memory реализацию CheckoutRepository.
func NewCheckoutRepository(store *Store) domain.CheckoutRepository {
	return &checkoutRepositoryInMemory{store: store}
}

// Commit применяет условные декременты и вставки заказов как единое целое.
// Повтор уже закоммиченной платёжной ссылки возвращает исходные заказы без
// повторного списания стока.
func (r *checkoutRepositoryInMemory) Commit(_ context.Context, commit domain.CheckoutCommit) (domain.CommitResult, error) {
	if errs := commit.ValidateInvariants(); len(errs) > 0 {
		return domain.CommitResult{}, errors.Join(errs...)
	}

	policy := commit.PricePolicy
	if policy == "" {
		policy = domain.PricePolicyCommitTime
	}
	if !policy.Valid() {
		return domain.CommitResult{}, domain.ErrPricePolicyInvalid
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if ids, ok := r.store.refs[commit.PaymentReference]; ok {
		return domain.CommitResult{
			OrderIDs: append([]string(nil), ids...),
			Replayed: true,
		}, nil
	}

	// Сначала проверяем все строки, потом применяем: всё или ничего.
	demand := make(map[string]int)
	for _, line := range commit.Lines {
		demand[line.ItemID]++
	}

	var outOfStock []string
	for itemID, qty := range demand {
		item, ok := r.store.items[itemID]
		if !ok {
			return domain.CommitResult{}, fmt.Errorf("item %s: %w", itemID, domain.ErrItemNotFound)
		}
		if item.Quantity < qty {
			outOfStock = append(outOfStock, itemID)
		}
	}
	if len(outOfStock) > 0 {
		return domain.CommitResult{}, &domain.OutOfStockError{ItemIDs: outOfStock}
	}

	now := time.Now().UTC()
	orderIDs := make([]string, 0, len(commit.Lines))
	for _, line := range commit.Lines {
		item := r.store.items[line.ItemID]
		item.Quantity--
		item.Status = domain.DeriveAvailability(item.Quantity, item.Status)
		item.UpdatedAt = now
		r.store.items[line.ItemID] = item

		amount := item.Price
		if policy == domain.PricePolicyQuoted {
			amount = line.QuotedPrice
		}

		order := domain.Order{
			ID:               uuid.NewString(),
			BuyerID:          commit.BuyerID,
			GuestEmail:       commit.GuestEmail,
			ItemID:           item.ID,
			ItemBreed:        item.Breed,
			ItemTag:          item.TagNumber,
			ItemImage:        item.PrimaryImage(),
			Amount:           amount,
			PaymentReference: commit.PaymentReference,
			PaymentStatus:    domain.PaymentStatusSuccessful,
			DeliveryStatus:   domain.DeliveryStatusProcessing,
			Delivery:         commit.Delivery,
			CreatedAt:        now,
		}
		r.store.orders[order.ID] = order
		orderIDs = append(orderIDs, order.ID)
	}

	r.store.refs[commit.PaymentReference] = append([]string(nil), orderIDs...)

	return domain.CommitResult{OrderIDs: orderIDs}, nil
}

var _ domain.CheckoutRepository = (*checkoutRepositoryInMemory)(nil)
