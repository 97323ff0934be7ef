package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus описывает результат оплаты, зафиксированный на заказе.
type PaymentStatus string

const (
	// PaymentStatusSuccessful — провайдер подтвердил списание средств.
	PaymentStatusSuccessful PaymentStatus = "Successful"
	// PaymentStatusPending — оплата инициирована, подтверждение ещё не получено.
	PaymentStatusPending PaymentStatus = "Pending"
	// PaymentStatusFailed — провайдер отклонил оплату.
	PaymentStatusFailed PaymentStatus = "Failed"
)

// DeliveryStatus описывает этап доставки заказа. Переходы между этапами
// администратор выставляет вручную, без валидации направления.
type DeliveryStatus string

const (
	DeliveryStatusProcessing DeliveryStatus = "Processing"
	DeliveryStatusShipped    DeliveryStatus = "Shipped"
	DeliveryStatusInTransit  DeliveryStatus = "In Transit"
	DeliveryStatusDelivered  DeliveryStatus = "Delivered"
)

// Valid проверяет, что статус доставки относится к поддерживаемым значениям.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryStatusProcessing, DeliveryStatusShipped, DeliveryStatusInTransit, DeliveryStatusDelivered:
		return true
	default:
		return false
	}
}

// DeliveryDetails — контактные данные получателя, снятые на чекауте.
type DeliveryDetails struct {
	RecipientName string
	PhoneNumber   string
	Address       string
	Region        string
	Instructions  string
}

// ValidateInvariants проверяет обязательные поля доставки.
func (d DeliveryDetails) ValidateInvariants() []error {
	var errs []error

	if strings.TrimSpace(d.RecipientName) == "" {
		errs = append(errs, ErrRecipientRequired)
	}
	if strings.TrimSpace(d.PhoneNumber) == "" {
		errs = append(errs, ErrPhoneRequired)
	}
	if strings.TrimSpace(d.Address) == "" {
		errs = append(errs, ErrAddressRequired)
	}

	return errs
}

// Order — неизменяемая запись об одной купленной единице, привязанная к
// платёжной ссылке. После создания меняется только DeliveryStatus.
type Order struct {
	ID string
	// BuyerID пуст для гостевых покупок; тогда обязателен GuestEmail.
	BuyerID    string
	GuestEmail string
	ItemID     string
	// Снимок данных позиции на момент коммита: заказ обязан переживать
	// жёсткое удаление позиции администратором.
	ItemBreed string
	ItemTag   string
	ItemImage string
	// Amount — цена, зафиксированная в момент коммита; далее неизменна.
	Amount decimal.Decimal
	// PaymentReference — внешняя ссылка платежа, ключ идемпотентности чекаута.
	PaymentReference string
	PaymentStatus    PaymentStatus
	DeliveryStatus   DeliveryStatus
	Delivery         DeliveryDetails
	CreatedAt        time.Time
}

// BuyerLabel возвращает идентификатор покупателя для логов и выгрузок.
func (o *Order) BuyerLabel() string {
	if o.BuyerID != "" {
		return o.BuyerID
	}
	if o.GuestEmail != "" {
		return "guest:" + o.GuestEmail
	}
	return "guest"
}

// ValidateInvariants проверяет базовые инварианты заказа.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if strings.TrimSpace(o.ItemID) == "" {
		errs = append(errs, ErrOrderItemRequired)
	}
	if strings.TrimSpace(o.PaymentReference) == "" {
		errs = append(errs, ErrPaymentReferenceRequired)
	}
	if o.BuyerID == "" && strings.TrimSpace(o.GuestEmail) == "" {
		errs = append(errs, ErrGuestEmailRequired)
	}
	if o.Amount.IsNegative() {
		errs = append(errs, ErrOrderAmountNegative)
	}

	return errs
}

// AdminOrder — заказ с витринными данными позиции для админской выборки.
// Если позиция удалена, Display* заполняются из снимка на самом заказе.
type AdminOrder struct {
	Order
	DisplayBreed string
	DisplayTag   string
	DisplayImage string
	// ItemDeleted выставляется, когда живой позиции каталога больше нет.
	ItemDeleted bool
}
