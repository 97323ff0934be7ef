package memory

import (
	"context"
	"sort"

	"github.com/obinnaokafor/stockyard/internal/domain"
)

// orderRepositoryInMemory — in-memory реализация OrderRepository поверх Store.
type orderRepositoryInMemory struct {
	store *Store
}

// NewOrderRepository возвращает in-memory репозиторий заказов.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepositoryInMemory{store: store}
}

// Get возвращает заказ или ErrOrderNotFound.
func (r *orderRepositoryInMemory) Get(_ context.Context, id string) (domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	order, ok := r.store.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// ListByBuyer возвращает заказы покупателя, новые первыми.
func (r *orderRepositoryInMemory) ListByBuyer(_ context.Context, buyerID string) ([]domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range r.store.orders {
		if order.BuyerID != buyerID {
			continue
		}
		result = append(result, order)
	}

	sortOrdersNewestFirst(result)
	return result, nil
}

// ListByPaymentReference возвращает заказы одного чекаута.
func (r *orderRepositoryInMemory) ListByPaymentReference(_ context.Context, reference string) ([]domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ids := r.store.refs[reference]
	result := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		if order, ok := r.store.orders[id]; ok {
			result = append(result, order)
		}
	}
	return result, nil
}

// ListAll возвращает все заказы с витринными данными позиции. Для удалённых
// позиций витрина собирается из снимка на самом заказе.
func (r *orderRepositoryInMemory) ListAll(_ context.Context) ([]domain.AdminOrder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	orders := make([]domain.Order, 0, len(r.store.orders))
	for _, order := range r.store.orders {
		orders = append(orders, order)
	}
	sortOrdersNewestFirst(orders)

	result := make([]domain.AdminOrder, 0, len(orders))
	for _, order := range orders {
		admin := domain.AdminOrder{Order: order}
		if item, ok := r.store.items[order.ItemID]; ok {
			admin.DisplayBreed = item.Breed
			admin.DisplayTag = item.TagNumber
			admin.DisplayImage = item.PrimaryImage()
		} else {
			admin.ItemDeleted = true
			admin.DisplayBreed = order.ItemBreed
			admin.DisplayTag = order.ItemTag
			admin.DisplayImage = order.ItemImage
		}
		result = append(result, admin)
	}

	return result, nil
}

// UpdateDeliveryStatus безусловно пишет delivery_status, остальное не трогает.
func (r *orderRepositoryInMemory) UpdateDeliveryStatus(_ context.Context, orderID string, status domain.DeliveryStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	order, ok := r.store.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.DeliveryStatus = status
	r.store.orders[orderID] = order
	return nil
}

func sortOrdersNewestFirst(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
