package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит метрики сверки чекаута со стоком.
type CheckoutMetrics struct {
	// Счётчики исходов коммита
	commitStarted    prometheus.Counter
	commitCommitted  prometheus.Counter
	commitOutOfStock prometheus.Counter
	commitReplayed   prometheus.Counter
	commitFailed     prometheus.Counter

	// Гистограмма времени коммита
	commitDuration prometheus.Histogram

	// Gauge платежей, принятых без созданных заказов
	unresolvedPayments prometheus.Gauge

	// Счётчик позиций, ушедших в Sold
	itemsSoldOut prometheus.Counter
}

// NewCheckoutMetrics создаёт новый экземпляр метрик чекаута.
func NewCheckoutMetrics() *CheckoutMetrics {
	return NewCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCheckoutMetricsWithRegisterer создаёт метрики в заданном registry;
// используется тестами, чтобы не трогать глобальный DefaultRegisterer.
func NewCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		commitStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "stockyard_checkout_started_total",
			Help: "Total number of checkout commits started",
		}),
		commitCommitted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "stockyard_checkout_committed_total",
			Help: "Total number of checkout commits applied successfully",
		}),
		commitOutOfStock: registerCounter(registerer, prometheus.CounterOpts{
			Name: "stockyard_checkout_out_of_stock_total",
			Help: "Total number of checkout commits rejected due to missing stock",
		}),
		commitReplayed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "stockyard_checkout_replayed_total",
			Help: "Total number of replayed checkout commits",
		}),
		commitFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "stockyard_checkout_failed_total",
			Help: "Total number of checkout commits failed",
		}),
		commitDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "stockyard_checkout_duration_seconds",
			Help:    "Duration of checkout commits in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		unresolvedPayments: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "stockyard_checkout_unresolved_payments",
			Help: "Number of successful payments without committed orders awaiting manual recovery",
		}),
		itemsSoldOut: registerCounter(registerer, prometheus.CounterOpts{
			Name: "stockyard_items_sold_out_total",
			Help: "Total number of items whose stock reached zero during checkout",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCommitStarted увеличивает счётчик начатых коммитов.
func (m *CheckoutMetrics) RecordCommitStarted() {
	m.commitStarted.Inc()
}

// RecordCommitCommitted увеличивает счётчик успешно применённых коммитов.
func (m *CheckoutMetrics) RecordCommitCommitted() {
	m.commitCommitted.Inc()
}

// RecordCommitOutOfStock увеличивает счётчик коммитов, отклонённых по стоку.
func (m *CheckoutMetrics) RecordCommitOutOfStock() {
	m.commitOutOfStock.Inc()
}

// RecordCommitReplayed увеличивает счётчик повторно проигранных коммитов.
func (m *CheckoutMetrics) RecordCommitReplayed() {
	m.commitReplayed.Inc()
}

// RecordCommitFailed увеличивает счётчик неудачных коммитов.
func (m *CheckoutMetrics) RecordCommitFailed() {
	m.commitFailed.Inc()
}

// RecordCommitDuration записывает время выполнения коммита.
func (m *CheckoutMetrics) RecordCommitDuration(duration time.Duration) {
	m.commitDuration.Observe(duration.Seconds())
}

// RecordUnresolvedPayment увеличивает gauge платежей без заказов.
func (m *CheckoutMetrics) RecordUnresolvedPayment() {
	m.unresolvedPayments.Inc()
}

// RecordUnresolvedPaymentRecovered уменьшает gauge платежей без заказов.
func (m *CheckoutMetrics) RecordUnresolvedPaymentRecovered() {
	m.unresolvedPayments.Dec()
}

// RecordItemSoldOut увеличивает счётчик распроданных позиций.
func (m *CheckoutMetrics) RecordItemSoldOut() {
	m.itemsSoldOut.Inc()
}
