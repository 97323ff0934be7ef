package domain

import "errors"

var (
	// Ошибка отсутствующего инвентарного номера позиции.
	ErrItemTagRequired = errors.New("item tag_number is required")
	// Ошибка отсутствующей породы.
	ErrItemBreedRequired = errors.New("item breed is required")
	// Ошибка неположительной цены позиции.
	ErrItemPriceInvalid = errors.New("item price must be positive")
	// Ошибка отрицательного остатка.
	ErrItemQuantityNegative = errors.New("item quantity must be non-negative")
	// Ошибка неподдерживаемого статуса доступности.
	ErrItemStatusInvalid = errors.New("item availability status is invalid")
	// ErrItemNotFound возвращается, если позиция каталога не найдена.
	ErrItemNotFound = errors.New("item not found")
	// ErrItemAlreadyExists возвращается при создании позиции с занятым ID.
	ErrItemAlreadyExists = errors.New("item already exists")

	// Ошибка отсутствующего получателя доставки.
	ErrRecipientRequired = errors.New("delivery recipient_name is required")
	// Ошибка отсутствующего телефона получателя.
	ErrPhoneRequired = errors.New("delivery phone_number is required")
	// Ошибка отсутствующего адреса доставки.
	ErrAddressRequired = errors.New("delivery address is required")

	// Ошибка пустой корзины на чекауте.
	ErrCartEmpty = errors.New("cart is empty")
	// Ошибка гостевого чекаута без контактного email.
	ErrGuestEmailRequired = errors.New("guest checkout requires contact email")
	// Ошибка отсутствующего товара в строке заказа/коммита.
	ErrOrderItemRequired = errors.New("order item_id is required")
	// Ошибка отсутствующей платёжной ссылки.
	ErrPaymentReferenceRequired = errors.New("payment_reference is required")
	// Ошибка отрицательной суммы заказа.
	ErrOrderAmountNegative = errors.New("order amount must be non-negative")
	// Ошибка неподдерживаемой политики цены.
	ErrPricePolicyInvalid = errors.New("price policy is invalid")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")

	// ErrOutOfStock — условный декремент не прошёл: остатка не хватает.
	ErrOutOfStock = errors.New("item out of stock")
	// ErrCommitInProgress — коммит с этой платёжной ссылкой уже выполняется
	// параллельным вызовом; повтор безопасен.
	ErrCommitInProgress = errors.New("checkout commit already in progress")
	// ErrPaymentFailed — провайдер сообщил неуспешный статус; мутаций не было.
	ErrPaymentFailed = errors.New("payment failed")
	// ErrPaymentRecordedOrderFailed — деньги списаны, но заказ не записан.
	// Единственный класс ошибок, который запрещено терять молча: эскалируется
	// на ручную сверку с платёжной ссылкой в качестве ключа восстановления.
	ErrPaymentRecordedOrderFailed = errors.New("payment recorded but order commit failed")

	// Ошибка отсутствующего ключа идемпотентности.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// Ошибка отсутствующего хеша запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyAlreadyExists — ключ уже зарегистрирован.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — ключ повторён с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency request hash mismatch")
	// ErrIdempotencyKeyNotFound — запись по ключу не найдена.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
)

// IsOutOfStock проверяет, является ли ошибка нехваткой остатка.
func IsOutOfStock(err error) bool {
	return errors.Is(err, ErrOutOfStock)
}

// IsRetryableCommitError сообщает, безопасно ли повторить коммит с той же
// платёжной ссылкой. Бизнес-отказы (нет стока, позиция удалена, конфликт
// хеша) повторением не лечатся; всё остальное — транзиентные ошибки
// хранилища, повтор безопасен благодаря ключу идемпотентности.
func IsRetryableCommitError(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrOutOfStock),
		errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrIdempotencyHashMismatch),
		errors.Is(err, ErrCartEmpty),
		errors.Is(err, ErrGuestEmailRequired),
		errors.Is(err, ErrPaymentReferenceRequired):
		return false
	case errors.Is(err, ErrCommitInProgress):
		return true
	default:
		return true
	}
}

// OutOfStockError уточняет ErrOutOfStock списком недоступных позиций, чтобы
// клиент видел, какие именно строки сорвали коммит.
type OutOfStockError struct {
	ItemIDs []string
}

func (e *OutOfStockError) Error() string {
	return ErrOutOfStock.Error()
}

// Unwrap позволяет errors.Is(err, ErrOutOfStock).
func (e *OutOfStockError) Unwrap() error {
	return ErrOutOfStock
}
