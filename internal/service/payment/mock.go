package payment

import (
	"context"
	"sync"

	"github.com/obinnaokafor/stockyard/internal/domain"
)

// MockGateway — конфигурируемая заглушка PaymentGateway для тестов и
// локального запуска без внешнего провайдера.
type MockGateway struct {
	ChargeErr error

	mu      sync.Mutex
	charges []domain.PaymentCharge
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// Charge возвращает заранее настроенный результат и запоминает вызов.
func (m *MockGateway) Charge(_ context.Context, charge domain.PaymentCharge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.charges = append(m.charges, charge)
	return m.ChargeErr
}

// ChargeCalls возвращает количество инициированных списаний.
func (m *MockGateway) ChargeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.charges)
}

// LastCharge возвращает последнее списание и признак его наличия.
func (m *MockGateway) LastCharge() (domain.PaymentCharge, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.charges) == 0 {
		return domain.PaymentCharge{}, false
	}
	return m.charges[len(m.charges)-1], true
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
