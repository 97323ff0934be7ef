package memory

import (
	"context"
	"sort"
	"time"

	"github.com/obinnaokafor/stockyard/internal/domain"
)

// itemRepositoryInMemory — in-memory реализация ItemRepository поверх Store.
type itemRepositoryInMemory struct {
	store *Store
}

// NewItemRepository возвращает in-memory репозиторий каталога.
func NewItemRepository(store *Store) domain.ItemRepository {
	return &itemRepositoryInMemory{store: store}
}

// Create сохраняет новую позицию, если ID ещё не занят.
func (r *itemRepositoryInMemory) Create(_ context.Context, item domain.Item) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.items[item.ID]; exists {
		return domain.ErrItemAlreadyExists
	}
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.store.items[item.ID] = cloneItem(item)
	return nil
}

// Get возвращает позицию или ErrItemNotFound.
func (r *itemRepositoryInMemory) Get(_ context.Context, id string) (domain.Item, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	item, ok := r.store.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return cloneItem(item), nil
}

// List возвращает каталог, новые позиции первыми.
func (r *itemRepositoryInMemory) List(_ context.Context) ([]domain.Item, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Item, 0, len(r.store.items))
	for _, item := range r.store.items {
		result = append(result, cloneItem(item))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

// Update перезаписывает позицию целиком. Статус обязан быть выведен через
// DeriveAvailability до вызова — репозиторий правило не переигрывает.
func (r *itemRepositoryInMemory) Update(_ context.Context, item domain.Item) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.items[item.ID]; !ok {
		return domain.ErrItemNotFound
	}
	item.UpdatedAt = time.Now().UTC()
	r.store.items[item.ID] = cloneItem(item)
	return nil
}

// Delete жёстко удаляет позицию; заказы остаются со своими снимками.
func (r *itemRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.items[id]; !ok {
		return domain.ErrItemNotFound
	}
	delete(r.store.items, id)
	return nil
}

var _ domain.ItemRepository = (*itemRepositoryInMemory)(nil)
