package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/obinnaokafor/stockyard/internal/domain"
	"github.com/obinnaokafor/stockyard/internal/messaging/kafka"
	"github.com/obinnaokafor/stockyard/internal/metrics"
)

const (
	// Валюта витрины. Провайдер работает в найрах.
	chargeCurrency = "NGN"

	idempotencyTTL = 24 * time.Hour
)

// BeginRequest — запрос на старт чекаута из корзины.
type BeginRequest struct {
	Cart       domain.Cart
	BuyerID    string
	GuestEmail string
	// Email — контакт для платёжного провайдера; для гостя совпадает с GuestEmail.
	Email    string
	Delivery domain.DeliveryDetails
}

// BeginResult — платёжная ссылка и сумма, переданные провайдеру.
type BeginResult struct {
	PaymentReference string
	Amount           decimal.Decimal
}

// Orchestrator ведёт чекаут от корзины до заказов: инициирует списание,
// принимает callback провайдера и фиксирует коммит ровно один раз.
type Orchestrator struct {
	items     domain.ItemRepository
	commits   domain.CheckoutRepository
	idem      domain.IdempotencyRepository
	gateway   domain.PaymentGateway
	publisher domain.CheckoutEventPublisher // опциональная шина событий
	metrics   *metrics.CheckoutMetrics
	logger    *log.Entry
	retry     RetryConfig
	policy    domain.PricePolicy

	mu      sync.Mutex
	pending map[string]domain.CheckoutCommit
}

// NewOrchestrator создаёт рабочий экземпляр оркестратора.
func NewOrchestrator(
	items domain.ItemRepository,
	commits domain.CheckoutRepository,
	idem domain.IdempotencyRepository,
	gateway domain.PaymentGateway,
	logger *log.Entry,
) *Orchestrator {
	o := newOrchestrator(items, commits, idem, gateway, logger)
	o.metrics = metrics.NewCheckoutMetrics()
	return o
}

// NewOrchestratorWithPublisher создаёт оркестратор с внешней шиной событий.
func NewOrchestratorWithPublisher(
	items domain.ItemRepository,
	commits domain.CheckoutRepository,
	idem domain.IdempotencyRepository,
	gateway domain.PaymentGateway,
	publisher domain.CheckoutEventPublisher,
	logger *log.Entry,
) *Orchestrator {
	o := NewOrchestrator(items, commits, idem, gateway, logger)
	o.publisher = publisher
	return o
}

// NewOrchestratorWithoutMetrics создаёт оркестратор без метрик (для тестов).
func NewOrchestratorWithoutMetrics(
	items domain.ItemRepository,
	commits domain.CheckoutRepository,
	idem domain.IdempotencyRepository,
	gateway domain.PaymentGateway,
	logger *log.Entry,
) *Orchestrator {
	return newOrchestrator(items, commits, idem, gateway, logger)
}

func newOrchestrator(
	items domain.ItemRepository,
	commits domain.CheckoutRepository,
	idem domain.IdempotencyRepository,
	gateway domain.PaymentGateway,
	logger *log.Entry,
) *Orchestrator {
	if logger == nil {
		logger = log.WithField("component", "checkout")
	}
	return &Orchestrator{
		items:   items,
		commits: commits,
		idem:    idem,
		gateway: gateway,
		logger:  logger,
		retry:   DefaultRetryConfig(),
		policy:  domain.PricePolicyCommitTime,
		pending: make(map[string]domain.CheckoutCommit),
	}
}

// SetPricePolicy переключает политику цены коммита.
func (o *Orchestrator) SetPricePolicy(policy domain.PricePolicy) error {
	if !policy.Valid() {
		return domain.ErrPricePolicyInvalid
	}
	o.policy = policy
	return nil
}

// SetRetryConfig переопределяет параметры повторов коммита.
func (o *Orchestrator) SetRetryConfig(config RetryConfig) {
	o.retry = config.normalized()
}

// Begin собирает коммит из корзины и инициирует списание у провайдера.
// Ни сток, ни заказы на этом шаге не меняются.
func (o *Orchestrator) Begin(ctx context.Context, req BeginRequest) (BeginResult, error) {
	if len(req.Cart.Lines) == 0 {
		return BeginResult{}, domain.ErrCartEmpty
	}
	if req.BuyerID == "" && req.GuestEmail == "" {
		return BeginResult{}, domain.ErrGuestEmailRequired
	}
	if errs := req.Delivery.ValidateInvariants(); len(errs) > 0 {
		return BeginResult{}, errors.Join(errs...)
	}

	reference := uuid.NewString()
	lines := make([]domain.CheckoutLine, 0, len(req.Cart.Lines))
	for _, line := range req.Cart.Lines {
		lines = append(lines, domain.CheckoutLine{
			ItemID:      line.ItemID,
			QuotedPrice: line.Price,
		})
	}

	commit := domain.CheckoutCommit{
		PaymentReference: reference,
		BuyerID:          req.BuyerID,
		GuestEmail:       req.GuestEmail,
		Lines:            lines,
		Delivery:         req.Delivery,
		PricePolicy:      o.policy,
	}
	if errs := commit.ValidateInvariants(); len(errs) > 0 {
		return BeginResult{}, errors.Join(errs...)
	}

	amount := req.Cart.Total()
	email := req.Email
	if email == "" {
		email = req.GuestEmail
	}

	charge := domain.PaymentCharge{
		Reference:   reference,
		Amount:      amount,
		Currency:    chargeCurrency,
		Email:       email,
		PhoneNumber: req.Delivery.PhoneNumber,
		Description: fmt.Sprintf("livestock order, %d item(s)", len(lines)),
	}
	if err := o.gateway.Charge(ctx, charge); err != nil {
		return BeginResult{}, fmt.Errorf("initiate charge: %w", err)
	}

	o.mu.Lock()
	o.pending[reference] = commit
	o.mu.Unlock()

	o.logger.WithFields(log.Fields{
		"payment_reference": reference,
		"lines":             len(lines),
		"amount":            amount.String(),
	}).Info("checkout started")

	return BeginResult{PaymentReference: reference, Amount: amount}, nil
}

// HandlePaymentCallback обрабатывает подтверждение провайдера. Неуспешный
// статус ничего не мутирует. Успешный статус приводит ровно к одному
// коммиту; повтор callback'а возвращает исходные заказы.
func (o *Orchestrator) HandlePaymentCallback(ctx context.Context, confirmation domain.PaymentConfirmation) (domain.CommitResult, error) {
	reference := confirmation.Reference
	if reference == "" {
		return domain.CommitResult{}, domain.ErrPaymentReferenceRequired
	}

	if !confirmation.Successful() {
		o.mu.Lock()
		delete(o.pending, reference)
		o.mu.Unlock()

		o.logger.WithFields(log.Fields{
			"payment_reference": reference,
			"status":            confirmation.Status,
		}).Warn("payment declined by provider")
		return domain.CommitResult{}, domain.ErrPaymentFailed
	}

	o.mu.Lock()
	commit, ok := o.pending[reference]
	o.mu.Unlock()
	if !ok {
		// Коммит мог уже завершиться: повторный callback обслуживаем из
		// idempotency-хранилища.
		if result, found := o.replayFromIdempotency(reference); found {
			if o.metrics != nil {
				o.metrics.RecordCommitReplayed()
			}
			return result, nil
		}
		// Оплата подтверждена, а ожидающего коммита нет: процесс мог
		// перезапуститься между инициацией и callback'ом. Деньги приняты,
		// заказов не будет — эскалируем на ручную сверку по платёжной ссылке.
		if o.metrics != nil {
			o.metrics.RecordUnresolvedPayment()
		}
		o.publishEvent(kafka.EventTypeCheckoutUnresolved, reference, map[string]interface{}{
			"reason": "no pending checkout for confirmed payment",
		})
		o.logger.WithField("payment_reference", reference).Error("payment confirmed but no pending checkout found, manual recovery required")
		return domain.CommitResult{}, fmt.Errorf("payment reference %s has no pending checkout: %w", reference, domain.ErrPaymentRecordedOrderFailed)
	}

	start := time.Now()
	if o.metrics != nil {
		o.metrics.RecordCommitStarted()
		defer func() {
			o.metrics.RecordCommitDuration(time.Since(start))
		}()
	}

	// recovering выставляется, когда коммит повторяется после ранее
	// зафиксированного провала: успех обязан снять платёж с ручной сверки.
	recovering := false

	requestHash := hashCommit(commit)
	if _, err := o.idem.CreateProcessing(reference, requestHash, time.Now().UTC().Add(idempotencyTTL)); err != nil {
		switch {
		case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
			record, getErr := o.idem.Get(reference)
			if getErr != nil {
				return domain.CommitResult{}, fmt.Errorf("load idempotency record: %w", getErr)
			}
			switch record.Status {
			case domain.IdempotencyStatusDone:
				result, decodeErr := decodeCommitResult(record.ResponseBody)
				if decodeErr != nil {
					return domain.CommitResult{}, decodeErr
				}
				if o.metrics != nil {
					o.metrics.RecordCommitReplayed()
				}
				o.publishEvent(kafka.EventTypeCheckoutReplayed, reference, nil)
				return result, nil
			case domain.IdempotencyStatusProcessing:
				return domain.CommitResult{}, domain.ErrCommitInProgress
			default:
				// failed: предыдущая попытка не прошла, пробуем заново.
				recovering = true
			}
		case errors.Is(err, domain.ErrIdempotencyHashMismatch):
			return domain.CommitResult{}, fmt.Errorf("payment reference %s reused with different checkout: %w", reference, err)
		default:
			return domain.CommitResult{}, fmt.Errorf("register idempotency key: %w", err)
		}
	}

	result, err := o.commitWithRetry(ctx, commit)
	if err != nil {
		return domain.CommitResult{}, o.escalateCommitFailure(reference, err)
	}

	if body, marshalErr := json.Marshal(result.OrderIDs); marshalErr == nil {
		if markErr := o.idem.MarkDone(reference, body); markErr != nil {
			o.logger.WithError(markErr).WithField("payment_reference", reference).Warn("failed to mark idempotency key done")
		}
	}

	o.mu.Lock()
	delete(o.pending, reference)
	o.mu.Unlock()

	if recovering && o.metrics != nil {
		o.metrics.RecordUnresolvedPaymentRecovered()
	}

	eventType := kafka.EventTypeCheckoutCommitted
	if result.Replayed {
		eventType = kafka.EventTypeCheckoutReplayed
		if o.metrics != nil {
			o.metrics.RecordCommitReplayed()
		}
	} else if o.metrics != nil {
		o.metrics.RecordCommitCommitted()
	}
	o.publishEvent(eventType, reference, map[string]interface{}{
		"order_ids": result.OrderIDs,
	})

	o.reportSoldOutItems(ctx, reference, commit)

	o.logger.WithFields(log.Fields{
		"payment_reference": reference,
		"orders":            len(result.OrderIDs),
		"replayed":          result.Replayed,
	}).Info("checkout committed")

	return result, nil
}

func (o *Orchestrator) commitWithRetry(ctx context.Context, commit domain.CheckoutCommit) (domain.CommitResult, error) {
	cfg := o.retry.normalized()
	delay := cfg.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := o.commits.Commit(ctx, commit)
		if err == nil {
			if attempt > 1 {
				o.logger.WithFields(log.Fields{
					"payment_reference": commit.PaymentReference,
					"attempt":           attempt,
				}).Info("checkout commit succeeded after retry")
			}
			return result, nil
		}

		lastErr = err
		if !domain.IsRetryableCommitError(err) {
			return domain.CommitResult{}, err
		}

		if attempt < cfg.MaxAttempts {
			o.logger.WithError(err).WithFields(log.Fields{
				"payment_reference": commit.PaymentReference,
				"attempt":           attempt,
				"delay":             delay,
			}).Warn("checkout commit failed, retrying")

			select {
			case <-ctx.Done():
				return domain.CommitResult{}, ctx.Err()
			case <-time.After(delay):
			}

			delay = time.Duration(float64(delay) * cfg.BackoffFactor)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}
	}

	return domain.CommitResult{}, fmt.Errorf("%w: %w", domain.ErrPaymentRecordedOrderFailed, lastErr)
}

// escalateCommitFailure фиксирует провал коммита после успешной оплаты:
// деньги приняты, заказов нет, платёжная ссылка — ключ ручного восстановления.
func (o *Orchestrator) escalateCommitFailure(reference string, err error) error {
	if markErr := o.idem.MarkFailed(reference, []byte(err.Error())); markErr != nil {
		o.logger.WithError(markErr).WithField("payment_reference", reference).Warn("failed to mark idempotency key failed")
	}

	if domain.IsOutOfStock(err) {
		if o.metrics != nil {
			o.metrics.RecordCommitOutOfStock()
			o.metrics.RecordUnresolvedPayment()
		}
		o.publishEvent(kafka.EventTypeCheckoutOutOfStock, reference, map[string]interface{}{
			"error": err.Error(),
		})
		o.logger.WithError(err).WithField("payment_reference", reference).Error("payment accepted but stock is gone, manual recovery required")
		return err
	}

	if o.metrics != nil {
		o.metrics.RecordCommitFailed()
		o.metrics.RecordUnresolvedPayment()
	}
	o.publishEvent(kafka.EventTypeCheckoutUnresolved, reference, map[string]interface{}{
		"error": err.Error(),
	})
	o.logger.WithError(err).WithField("payment_reference", reference).Error("payment accepted but orders were not created, manual recovery required")

	if errors.Is(err, domain.ErrPaymentRecordedOrderFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrPaymentRecordedOrderFailed, err)
}

func (o *Orchestrator) replayFromIdempotency(reference string) (domain.CommitResult, bool) {
	if o.idem == nil {
		return domain.CommitResult{}, false
	}

	record, err := o.idem.Get(reference)
	if err != nil || record.Status != domain.IdempotencyStatusDone {
		return domain.CommitResult{}, false
	}

	result, err := decodeCommitResult(record.ResponseBody)
	if err != nil {
		return domain.CommitResult{}, false
	}
	return result, true
}

// reportSoldOutItems отмечает позиции, чей остаток упал до нуля этим коммитом.
func (o *Orchestrator) reportSoldOutItems(ctx context.Context, reference string, commit domain.CheckoutCommit) {
	seen := make(map[string]bool)
	for _, line := range commit.Lines {
		if seen[line.ItemID] {
			continue
		}
		seen[line.ItemID] = true

		item, err := o.items.Get(ctx, line.ItemID)
		if err != nil || item.Status != domain.AvailabilitySold {
			continue
		}

		if o.metrics != nil {
			o.metrics.RecordItemSoldOut()
		}
		o.publishEvent(kafka.EventTypeItemSoldOut, reference, map[string]interface{}{
			"item_id":    item.ID,
			"tag_number": item.TagNumber,
		})
	}
}

func (o *Orchestrator) publishEvent(eventType kafka.EventType, reference string, metadata map[string]interface{}) {
	if o.publisher == nil {
		return
	}
	o.publisher.PublishCheckoutEvent(string(eventType), reference, metadata)
}

func decodeCommitResult(body []byte) (domain.CommitResult, error) {
	var orderIDs []string
	if err := json.Unmarshal(body, &orderIDs); err != nil {
		return domain.CommitResult{}, fmt.Errorf("decode stored commit result: %w", err)
	}
	return domain.CommitResult{OrderIDs: orderIDs, Replayed: true}, nil
}

func hashCommit(commit domain.CheckoutCommit) string {
	data, err := json.Marshal(commit)
	if err != nil {
		// CheckoutCommit состоит из сериализуемых полей, сюда не попадаем.
		return commit.PaymentReference
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
