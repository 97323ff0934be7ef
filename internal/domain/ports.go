package domain

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ItemRepository описывает требования к хранилищу каталога.
type ItemRepository interface {
	// Create сохраняет новую позицию. Возвращает ошибку при занятом ID.
	Create(ctx context.Context, item Item) error
	// Get возвращает позицию или ErrItemNotFound.
	Get(ctx context.Context, id string) (Item, error)
	// List возвращает каталог, новые позиции первыми.
	List(ctx context.Context) ([]Item, error)
	// Update перезаписывает отображаемые поля, цену, остаток и статус.
	// Статус обязан проходить через DeriveAvailability до вызова.
	Update(ctx context.Context, item Item) error
	// Delete жёстко удаляет позицию; заказы переживают удаление за счёт снимков.
	Delete(ctx context.Context, id string) error
}

// OrderRepository описывает хранилище заказов и read-side выборки.
type OrderRepository interface {
	// Get возвращает заказ или ErrOrderNotFound.
	Get(ctx context.Context, id string) (Order, error)
	// ListByBuyer возвращает заказы покупателя, новые первыми.
	ListByBuyer(ctx context.Context, buyerID string) ([]Order, error)
	// ListByPaymentReference возвращает заказы одного чекаута.
	ListByPaymentReference(ctx context.Context, reference string) ([]Order, error)
	// ListAll возвращает все заказы с витринными данными позиций, новые первыми.
	ListAll(ctx context.Context) ([]AdminOrder, error)
	// UpdateDeliveryStatus безусловно пишет delivery_status; сток, цену и
	// платёжные поля не трогает.
	UpdateDeliveryStatus(ctx context.Context, orderID string, status DeliveryStatus) error
}

// CheckoutRepository — атомарная операция коммита чекаута: условные
// декременты стока и вставки заказов применяются как единое целое.
// Реализация обязана выдерживать параллельные коммиты по одной позиции.
type CheckoutRepository interface {
	Commit(ctx context.Context, commit CheckoutCommit) (CommitResult, error)
}

// IdempotencyRepository хранит состояние обработки коммитов по платёжной ссылке.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte) error
	MarkFailed(key string, responseBody []byte) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// PaymentCharge — параметры списания, передаваемые платёжному провайдеру.
type PaymentCharge struct {
	Reference   string
	Amount      decimal.Decimal
	Currency    string
	Email       string
	PhoneNumber string
	Description string
}

// PaymentConfirmation — событие callback'а провайдера.
// Любой статус, кроме успешных вариантов, трактуется как отказ.
type PaymentConfirmation struct {
	Reference string
	Status    string
}

// Successful трактует строковый статус провайдера без учёта регистра.
func (c PaymentConfirmation) Successful() bool {
	switch strings.ToLower(strings.TrimSpace(c.Status)) {
	case "successful", "completed":
		return true
	default:
		return false
	}
}

// PaymentGateway описывает взаимодействие с внешним платёжным провайдером.
// Подтверждение приходит асинхронным callback'ом и может не прийти вовсе.
type PaymentGateway interface {
	// Charge инициирует списание; не мутирует ни сток, ни заказы.
	Charge(ctx context.Context, charge PaymentCharge) error
}

// CheckoutEventPublisher публикует события жизненного цикла чекаута во
// внешнюю шину; реализация обязана быть необязательной для ядра.
type CheckoutEventPublisher interface {
	PublishCheckoutEvent(eventType string, paymentReference string, metadata map[string]interface{})
}
