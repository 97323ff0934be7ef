package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine — одна позиция клиентской корзины: ссылка на товар плюс снимок
// цены, показанной покупателю в момент добавления. Снимок — только подсказка
// для отображения; авторитетная цена перечитывается при коммите.
type CartLine struct {
	ItemID string
	// Breed/TagNumber/Image дублируются для отрисовки корзины без похода в каталог.
	Breed     string
	TagNumber string
	Image     string
	Price     decimal.Decimal
	AddedAt   time.Time
}

// Cart — клиентское, не подтверждённое сервером выделение товаров.
// Множество по ItemID: дубликатов не бывает, количество всегда 1 на строку.
type Cart struct {
	SessionID string
	Lines     []CartLine
	UpdatedAt time.Time
}

// Total возвращает сумму снимков цен всех строк.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.Price)
	}
	return total
}

// Contains сообщает, есть ли товар в корзине.
func (c *Cart) Contains(itemID string) bool {
	for _, line := range c.Lines {
		if line.ItemID == itemID {
			return true
		}
	}
	return false
}
