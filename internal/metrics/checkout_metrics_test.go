package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewCheckoutMetrics(t *testing.T) {
	metrics := NewCheckoutMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics == nil {
		t.Fatal("NewCheckoutMetricsWithRegisterer should not return nil")
	}

	if metrics.commitStarted == nil {
		t.Error("commitStarted counter should not be nil")
	}
	if metrics.commitCommitted == nil {
		t.Error("commitCommitted counter should not be nil")
	}
	if metrics.commitOutOfStock == nil {
		t.Error("commitOutOfStock counter should not be nil")
	}
	if metrics.commitReplayed == nil {
		t.Error("commitReplayed counter should not be nil")
	}
	if metrics.commitFailed == nil {
		t.Error("commitFailed counter should not be nil")
	}
	if metrics.commitDuration == nil {
		t.Error("commitDuration histogram should not be nil")
	}
	if metrics.unresolvedPayments == nil {
		t.Error("unresolvedPayments gauge should not be nil")
	}
	if metrics.itemsSoldOut == nil {
		t.Error("itemsSoldOut counter should not be nil")
	}
}

func TestNewCheckoutMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewCheckoutMetricsWithRegisterer(reg)
	second := NewCheckoutMetricsWithRegisterer(reg)

	// Повторная регистрация должна переиспользовать существующие коллекторы.
	first.RecordCommitStarted()
	second.RecordCommitStarted()

	metric := &dto.Metric{}
	if err := first.commitStarted.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected shared counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordCommitOutcomes(t *testing.T) {
	metrics := NewCheckoutMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordCommitStarted()
	metrics.RecordCommitCommitted()
	metrics.RecordCommitOutOfStock()
	metrics.RecordCommitOutOfStock()
	metrics.RecordCommitReplayed()
	metrics.RecordCommitFailed()

	checks := []struct {
		name    string
		counter prometheus.Counter
		want    float64
	}{
		{"commitStarted", metrics.commitStarted, 1},
		{"commitCommitted", metrics.commitCommitted, 1},
		{"commitOutOfStock", metrics.commitOutOfStock, 2},
		{"commitReplayed", metrics.commitReplayed, 1},
		{"commitFailed", metrics.commitFailed, 1},
	}

	for _, check := range checks {
		metric := &dto.Metric{}
		if err := check.counter.Write(metric); err != nil {
			t.Fatalf("failed to write %s: %v", check.name, err)
		}
		if metric.Counter.GetValue() != check.want {
			t.Errorf("%s: expected %f, got %f", check.name, check.want, metric.Counter.GetValue())
		}
	}
}

func TestRecordCommitDuration(t *testing.T) {
	metrics := NewCheckoutMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordCommitDuration(100 * time.Millisecond)
	metrics.RecordCommitDuration(500 * time.Millisecond)
	metrics.RecordCommitDuration(1 * time.Second)

	metric := &dto.Metric{}
	if err := metrics.commitDuration.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Histogram.GetSampleCount() != 3 {
		t.Errorf("expected 3 samples, got %d", metric.Histogram.GetSampleCount())
	}

	sum := metric.Histogram.GetSampleSum()
	if sum < 1.5 || sum > 1.7 {
		t.Errorf("expected sum around 1.6, got %f", sum)
	}
}

func TestUnresolvedPaymentsGauge(t *testing.T) {
	metrics := NewCheckoutMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordUnresolvedPayment()
	metrics.RecordUnresolvedPayment()
	metrics.RecordUnresolvedPaymentRecovered()

	metric := &dto.Metric{}
	if err := metrics.unresolvedPayments.Write(metric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	if metric.Gauge.GetValue() != 1.0 {
		t.Errorf("expected 1.0 unresolved payment, got %f", metric.Gauge.GetValue())
	}
}
