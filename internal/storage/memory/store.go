package memory

import (
	"sync"

	"github.com/obinnaokafor/stockyard/internal/domain"
)

// Store — общее in-memory состояние каталога и заказов для локальной
// разработки и тестов. Один мьютекс на всё состояние играет роль
// транзакции БД: коммит чекаута видит и меняет сток и заказы атомарно.
type Store struct {
	mu     sync.RWMutex
	items  map[string]domain.Item
	orders map[string]domain.Order
	// refs индексирует заказы по платёжной ссылке для идемпотентного повтора.
	refs map[string][]string
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		items:  make(map[string]domain.Item),
		orders: make(map[string]domain.Order),
		refs:   make(map[string][]string),
	}
}

func cloneItem(src domain.Item) domain.Item {
	dst := src
	dst.Images = append([]string(nil), src.Images...)
	return dst
}
