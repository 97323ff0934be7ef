package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// Checkout события
	EventTypeCheckoutCommitted  EventType = "checkout.committed"
	EventTypeCheckoutOutOfStock EventType = "checkout.out_of_stock"
	EventTypeCheckoutReplayed   EventType = "checkout.replayed"
	EventTypeCheckoutUnresolved EventType = "checkout.unresolved"

	// Catalog события
	EventTypeItemSoldOut EventType = "item.sold_out"

	// Delivery события
	EventTypeDeliveryStatusChanged EventType = "delivery.status_changed"
)

// Topics для Kafka
const (
	TopicCheckoutEvents = "stockyard.checkout.events"
	TopicCatalogEvents  = "stockyard.catalog.events"
)

// TopicFor возвращает топик для типа события: каталожные события уходят в
// свой топик, события жизненного цикла чекаута и доставки — в чекаутный.
func TopicFor(eventType EventType) string {
	switch eventType {
	case EventTypeItemSoldOut:
		return TopicCatalogEvents
	default:
		return TopicCheckoutEvents
	}
}

// CheckoutEvent представляет событие жизненного цикла чекаута.
// Ключом партиционирования служит платёжная ссылка.
type CheckoutEvent struct {
	EventType        EventType              `json:"event_type"`
	PaymentReference string                 `json:"payment_reference"`
	Timestamp        time.Time              `json:"timestamp"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// NewCheckoutEvent создает новое событие чекаута
func NewCheckoutEvent(eventType EventType, paymentReference string, metadata map[string]interface{}) *CheckoutEvent {
	return &CheckoutEvent{
		EventType:        eventType,
		PaymentReference: paymentReference,
		Timestamp:        time.Now(),
		Metadata:         metadata,
	}
}
