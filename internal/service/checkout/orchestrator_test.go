package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/obinnaokafor/stockyard/internal/domain"
	"github.com/obinnaokafor/stockyard/internal/messaging/kafka"
	"github.com/obinnaokafor/stockyard/internal/metrics"
	"github.com/obinnaokafor/stockyard/internal/service/payment"
	"github.com/obinnaokafor/stockyard/internal/storage/memory"
)

type orchestratorFixture struct {
	store   *memory.Store
	items   domain.ItemRepository
	idem    domain.IdempotencyRepository
	gateway *payment.MockGateway
	orch    *Orchestrator
}

func newFixture(t *testing.T) *orchestratorFixture {
	t.Helper()

	store := memory.NewStore()
	items := memory.NewItemRepository(store)
	idem := memory.NewIdempotencyRepository()
	gateway := payment.NewMockGateway()

	orch := NewOrchestratorWithoutMetrics(items, memory.NewCheckoutRepository(store), idem, gateway, nil)
	orch.SetRetryConfig(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2})

	return &orchestratorFixture{store: store, items: items, idem: idem, gateway: gateway, orch: orch}
}

func (f *orchestratorFixture) seedItem(t *testing.T, id string, quantity int, price int64) domain.Item {
	t.Helper()

	item := domain.Item{
		ID:        id,
		TagNumber: "T-" + id,
		Breed:     "Sokoto Gudali",
		Price:     decimal.NewFromInt(price),
		Quantity:  quantity,
		Status:    domain.DeriveAvailability(quantity, domain.AvailabilityAvailable),
	}
	if err := f.items.Create(context.Background(), item); err != nil {
		t.Fatalf("seed item %s: %v", id, err)
	}
	return item
}

func beginRequestFor(items ...domain.Item) BeginRequest {
	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.CartLine{
			ItemID:    item.ID,
			Breed:     item.Breed,
			TagNumber: item.TagNumber,
			Price:     item.Price,
		})
	}
	return BeginRequest{
		Cart:    domain.Cart{SessionID: "s-1", Lines: lines},
		BuyerID: "buyer-1",
		Email:   "buyer@example.com",
		Delivery: domain.DeliveryDetails{
			RecipientName: "Ada Obi",
			PhoneNumber:   "08012345678",
			Address:       "12 Market Road",
			Region:        "Kano",
		},
	}
}

func TestOrchestrator_BeginValidation(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "item-a", 1, 120000)

	empty := beginRequestFor(item)
	empty.Cart.Lines = nil
	if _, err := f.orch.Begin(context.Background(), empty); !errors.Is(err, domain.ErrCartEmpty) {
		t.Fatalf("expected ErrCartEmpty, got %v", err)
	}

	guest := beginRequestFor(item)
	guest.BuyerID = ""
	guest.Email = ""
	if _, err := f.orch.Begin(context.Background(), guest); !errors.Is(err, domain.ErrGuestEmailRequired) {
		t.Fatalf("expected ErrGuestEmailRequired, got %v", err)
	}

	badDelivery := beginRequestFor(item)
	badDelivery.Delivery.PhoneNumber = ""
	if _, err := f.orch.Begin(context.Background(), badDelivery); !errors.Is(err, domain.ErrPhoneRequired) {
		t.Fatalf("expected ErrPhoneRequired, got %v", err)
	}

	if f.gateway.ChargeCalls() != 0 {
		t.Fatalf("validation failures must not reach the gateway, got %d calls", f.gateway.ChargeCalls())
	}
}

func TestOrchestrator_BeginChargesCartTotal(t *testing.T) {
	f := newFixture(t)
	first := f.seedItem(t, "item-a", 2, 120000)
	second := f.seedItem(t, "item-b", 1, 80000)

	res, err := f.orch.Begin(context.Background(), beginRequestFor(first, second))
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if res.PaymentReference == "" {
		t.Fatal("expected generated payment reference")
	}
	if !res.Amount.Equal(decimal.NewFromInt(200000)) {
		t.Fatalf("unexpected amount: %s", res.Amount)
	}

	charge, ok := f.gateway.LastCharge()
	if !ok {
		t.Fatal("expected gateway charge")
	}
	if charge.Reference != res.PaymentReference {
		t.Fatalf("charge reference %s does not match %s", charge.Reference, res.PaymentReference)
	}
	if charge.Currency != "NGN" {
		t.Fatalf("unexpected currency %s", charge.Currency)
	}

	// Инициация не трогает сток.
	item, err := f.items.Get(context.Background(), "item-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item.Quantity != 2 {
		t.Fatalf("begin must not mutate stock, got quantity %d", item.Quantity)
	}
}

func TestOrchestrator_BeginGatewayFailure(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "item-a", 1, 120000)

	f.gateway.ChargeErr = errors.New("provider unavailable")
	if _, err := f.orch.Begin(context.Background(), beginRequestFor(item)); err == nil {
		t.Fatal("expected charge error")
	}

	f.orch.mu.Lock()
	pending := len(f.orch.pending)
	f.orch.mu.Unlock()
	if pending != 0 {
		t.Fatalf("failed charge must not leave pending commits, got %d", pending)
	}
}

func TestOrchestrator_DeclinedCallbackMutatesNothing(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "item-a", 1, 120000)

	res, err := f.orch.Begin(context.Background(), beginRequestFor(item))
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	_, err = f.orch.HandlePaymentCallback(context.Background(), domain.PaymentConfirmation{
		Reference: res.PaymentReference,
		Status:    "failed",
	})
	if !errors.Is(err, domain.ErrPaymentFailed) {
		t.Fatalf("expected ErrPaymentFailed, got %v", err)
	}

	got, err := f.items.Get(context.Background(), "item-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Quantity != 1 || got.Status != domain.AvailabilityAvailable {
		t.Fatalf("declined payment must not mutate stock: %+v", got)
	}
	if _, err := f.idem.Get(res.PaymentReference); !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		t.Fatalf("declined payment must not register idempotency key, got %v", err)
	}
}

func TestOrchestrator_SuccessfulCallbackCommits(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "item-a", 1, 120000)

	res, err := f.orch.Begin(context.Background(), beginRequestFor(item))
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	result, err := f.orch.HandlePaymentCallback(context.Background(), domain.PaymentConfirmation{
		Reference: res.PaymentReference,
		Status:    "Successful",
	})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if len(result.OrderIDs) != 1 || result.Replayed {
		t.Fatalf("unexpected result: %+v", result)
	}

	got, err := f.items.Get(context.Background(), "item-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Quantity != 0 || got.Status != domain.AvailabilitySold {
		t.Fatalf("expected sold-out item, got %+v", got)
	}

	record, err := f.idem.Get(res.PaymentReference)
	if err != nil {
		t.Fatalf("idempotency get: %v", err)
	}
	if record.Status != domain.IdempotencyStatusDone {
		t.Fatalf("expected done record, got %s", record.Status)
	}
}

func TestOrchestrator_RepeatedCallbackReplays(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "item-a", 1, 120000)

	res, err := f.orch.Begin(context.Background(), beginRequestFor(item))
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	confirmation := domain.PaymentConfirmation{Reference: res.PaymentReference, Status: "successful"}
	first, err := f.orch.HandlePaymentCallback(context.Background(), confirmation)
	if err != nil {
		t.Fatalf("first callback: %v", err)
	}

	second, err := f.orch.HandlePaymentCallback(context.Background(), confirmation)
	if err != nil {
		t.Fatalf("repeated callback: %v", err)
	}
	if !second.Replayed {
		t.Fatal("expected replayed result")
	}
	if len(second.OrderIDs) != 1 || second.OrderIDs[0] != first.OrderIDs[0] {
		t.Fatalf("replay must return original orders: first %v, second %v", first.OrderIDs, second.OrderIDs)
	}

	got, err := f.items.Get(context.Background(), "item-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Quantity != 0 {
		t.Fatalf("replay must not decrement twice, got quantity %d", got.Quantity)
	}
}

// capturingPublisher записывает опубликованные события для проверок.
type capturingPublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	eventType string
	reference string
	metadata  map[string]interface{}
}

func (p *capturingPublisher) PublishCheckoutEvent(eventType string, paymentReference string, metadata map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{eventType: eventType, reference: paymentReference, metadata: metadata})
}

func (p *capturingPublisher) Events() []capturedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]capturedEvent(nil), p.events...)
}

func unresolvedGaugeValue(t *testing.T, registry *prometheus.Registry) float64 {
	t.Helper()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() == "stockyard_checkout_unresolved_payments" {
			return family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatal("unresolved payments gauge not registered")
	return 0
}

func TestOrchestrator_UnknownReferenceEscalates(t *testing.T) {
	f := newFixture(t)

	registry := prometheus.NewRegistry()
	f.orch.metrics = metrics.NewCheckoutMetricsWithRegisterer(registry)
	publisher := &capturingPublisher{}
	f.orch.publisher = publisher

	// Успешная оплата по ссылке, которой нет ни в pending, ни в idempotency:
	// деньги приняты, а заказов не будет. Молча отдать "не найдено" нельзя.
	_, err := f.orch.HandlePaymentCallback(context.Background(), domain.PaymentConfirmation{
		Reference: "ref-lost-on-restart",
		Status:    "successful",
	})
	if !errors.Is(err, domain.ErrPaymentRecordedOrderFailed) {
		t.Fatalf("expected ErrPaymentRecordedOrderFailed, got %v", err)
	}

	if got := unresolvedGaugeValue(t, registry); got != 1 {
		t.Fatalf("expected unresolved payments gauge 1, got %v", got)
	}

	events := publisher.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(events))
	}
	if events[0].eventType != string(kafka.EventTypeCheckoutUnresolved) {
		t.Fatalf("expected %s event, got %s", kafka.EventTypeCheckoutUnresolved, events[0].eventType)
	}
	if events[0].reference != "ref-lost-on-restart" {
		t.Fatalf("event must carry the payment reference as recovery key, got %q", events[0].reference)
	}
}

func TestOrchestrator_OutOfStockAfterPayment(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "item-a", 1, 120000)

	res, err := f.orch.Begin(context.Background(), beginRequestFor(item))
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	// Сток уходит между инициацией и callback'ом.
	drained := item
	drained.Quantity = 0
	drained.Status = domain.AvailabilitySold
	if err := f.items.Update(context.Background(), drained); err != nil {
		t.Fatalf("drain stock: %v", err)
	}

	_, err = f.orch.HandlePaymentCallback(context.Background(), domain.PaymentConfirmation{
		Reference: res.PaymentReference,
		Status:    "successful",
	})
	if !domain.IsOutOfStock(err) {
		t.Fatalf("expected out-of-stock error, got %v", err)
	}

	var oosErr *domain.OutOfStockError
	if !errors.As(err, &oosErr) || len(oosErr.ItemIDs) != 1 || oosErr.ItemIDs[0] != "item-a" {
		t.Fatalf("expected OutOfStockError naming item-a, got %v", err)
	}

	// Платёж принят, заказов нет: ключ обязан остаться в failed для сверки.
	record, err := f.idem.Get(res.PaymentReference)
	if err != nil {
		t.Fatalf("idempotency get: %v", err)
	}
	if record.Status != domain.IdempotencyStatusFailed {
		t.Fatalf("expected failed record, got %s", record.Status)
	}
}

// flakyCheckoutRepository отдаёт транзиентную ошибку на первых failures вызовах.
type flakyCheckoutRepository struct {
	inner    domain.CheckoutRepository
	failures int
	calls    int
}

func (r *flakyCheckoutRepository) Commit(ctx context.Context, commit domain.CheckoutCommit) (domain.CommitResult, error) {
	r.calls++
	if r.calls <= r.failures {
		return domain.CommitResult{}, errors.New("connection reset by peer")
	}
	return r.inner.Commit(ctx, commit)
}

func TestOrchestrator_RetriesTransientCommitFailure(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "item-a", 1, 120000)

	flaky := &flakyCheckoutRepository{inner: memory.NewCheckoutRepository(f.store), failures: 1}
	f.orch.commits = flaky

	res, err := f.orch.Begin(context.Background(), beginRequestFor(item))
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	result, err := f.orch.HandlePaymentCallback(context.Background(), domain.PaymentConfirmation{
		Reference: res.PaymentReference,
		Status:    "successful",
	})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if len(result.OrderIDs) != 1 {
		t.Fatalf("expected 1 order after retry, got %v", result.OrderIDs)
	}
	if flaky.calls != 2 {
		t.Fatalf("expected 2 commit attempts, got %d", flaky.calls)
	}
}

func TestOrchestrator_ExhaustedRetriesEscalate(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "item-a", 1, 120000)

	registry := prometheus.NewRegistry()
	f.orch.metrics = metrics.NewCheckoutMetricsWithRegisterer(registry)

	flaky := &flakyCheckoutRepository{inner: memory.NewCheckoutRepository(f.store), failures: 100}
	f.orch.commits = flaky

	res, err := f.orch.Begin(context.Background(), beginRequestFor(item))
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	_, err = f.orch.HandlePaymentCallback(context.Background(), domain.PaymentConfirmation{
		Reference: res.PaymentReference,
		Status:    "successful",
	})
	if !errors.Is(err, domain.ErrPaymentRecordedOrderFailed) {
		t.Fatalf("expected ErrPaymentRecordedOrderFailed, got %v", err)
	}

	record, getErr := f.idem.Get(res.PaymentReference)
	if getErr != nil {
		t.Fatalf("idempotency get: %v", getErr)
	}
	if record.Status != domain.IdempotencyStatusFailed {
		t.Fatalf("expected failed record, got %s", record.Status)
	}
	if got := unresolvedGaugeValue(t, registry); got != 1 {
		t.Fatalf("escalation must raise unresolved payments gauge to 1, got %v", got)
	}

	// Повторный callback после починки хранилища доводит коммит до конца
	// и снимает платёж с ручной сверки.
	flaky.failures = 0
	result, err := f.orch.HandlePaymentCallback(context.Background(), domain.PaymentConfirmation{
		Reference: res.PaymentReference,
		Status:    "successful",
	})
	if err != nil {
		t.Fatalf("recovery callback: %v", err)
	}
	if len(result.OrderIDs) != 1 {
		t.Fatalf("expected 1 order after recovery, got %v", result.OrderIDs)
	}
	if got := unresolvedGaugeValue(t, registry); got != 0 {
		t.Fatalf("recovery must return unresolved payments gauge to 0, got %v", got)
	}
}

func TestOrchestrator_ParallelCallbackInProgress(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "item-a", 1, 120000)

	res, err := f.orch.Begin(context.Background(), beginRequestFor(item))
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	f.orch.mu.Lock()
	commit := f.orch.pending[res.PaymentReference]
	f.orch.mu.Unlock()

	// Имитация параллельного callback'а: ключ уже в processing.
	if _, err := f.idem.CreateProcessing(res.PaymentReference, hashCommit(commit), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("pre-create: %v", err)
	}

	_, err = f.orch.HandlePaymentCallback(context.Background(), domain.PaymentConfirmation{
		Reference: res.PaymentReference,
		Status:    "successful",
	})
	if !errors.Is(err, domain.ErrCommitInProgress) {
		t.Fatalf("expected ErrCommitInProgress, got %v", err)
	}
}

func TestOrchestrator_QuotedPricePolicy(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "item-a", 1, 200000)
	if err := f.orch.SetPricePolicy(domain.PricePolicyQuoted); err != nil {
		t.Fatalf("set policy: %v", err)
	}

	req := beginRequestFor(item)
	req.Cart.Lines[0].Price = decimal.NewFromInt(150000)

	res, err := f.orch.Begin(context.Background(), req)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	result, err := f.orch.HandlePaymentCallback(context.Background(), domain.PaymentConfirmation{
		Reference: res.PaymentReference,
		Status:    "successful",
	})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}

	orders := memory.NewOrderRepository(f.store)
	order, err := orders.Get(context.Background(), result.OrderIDs[0])
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if !order.Amount.Equal(decimal.NewFromInt(150000)) {
		t.Fatalf("quoted policy must record quoted price, got %s", order.Amount)
	}
}
