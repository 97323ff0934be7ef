package orders

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/obinnaokafor/stockyard/internal/domain"
	"github.com/obinnaokafor/stockyard/internal/messaging/kafka"
)

// Service обслуживает историю заказов покупателя и админские операции
// над доставкой.
type Service struct {
	orders    domain.OrderRepository
	publisher domain.CheckoutEventPublisher // опциональная шина событий
	logger    *log.Entry
}

// NewService создаёт сервис заказов.
func NewService(orders domain.OrderRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "orders")
	}
	return &Service{orders: orders, logger: logger}
}

// NewServiceWithPublisher создаёт сервис заказов с внешней шиной событий.
func NewServiceWithPublisher(orders domain.OrderRepository, publisher domain.CheckoutEventPublisher, logger *log.Entry) *Service {
	s := NewService(orders, logger)
	s.publisher = publisher
	return s
}

// Get возвращает заказ или ErrOrderNotFound.
func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.orders.Get(ctx, id)
}

// ListForBuyer возвращает заказы покупателя, новые первыми.
func (s *Service) ListForBuyer(ctx context.Context, buyerID string) ([]domain.Order, error) {
	return s.orders.ListByBuyer(ctx, buyerID)
}

// ListByPaymentReference возвращает заказы одного чекаута.
func (s *Service) ListByPaymentReference(ctx context.Context, reference string) ([]domain.Order, error) {
	return s.orders.ListByPaymentReference(ctx, reference)
}

// ListAll возвращает все заказы для админской панели.
func (s *Service) ListAll(ctx context.Context) ([]domain.AdminOrder, error) {
	return s.orders.ListAll(ctx)
}

// UpdateDeliveryStatus переводит заказ в любой поддерживаемый статус
// доставки. Переходы не упорядочены: админ волен двигать статус в обе
// стороны, меняется только поле доставки.
func (s *Service) UpdateDeliveryStatus(ctx context.Context, orderID string, status domain.DeliveryStatus) error {
	if !status.Valid() {
		return fmt.Errorf("unsupported delivery status %q", status)
	}

	if err := s.orders.UpdateDeliveryStatus(ctx, orderID, status); err != nil {
		return err
	}

	if s.publisher != nil {
		// Ключом события служит платёжная ссылка заказа, как и у событий чекаута.
		if order, err := s.orders.Get(ctx, orderID); err == nil {
			s.publisher.PublishCheckoutEvent(string(kafka.EventTypeDeliveryStatusChanged), order.PaymentReference, map[string]interface{}{
				"order_id": orderID,
				"status":   string(status),
			})
		}
	}

	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"status":   status,
	}).Info("delivery status updated")

	return nil
}
