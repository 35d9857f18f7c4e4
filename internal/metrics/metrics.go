// Package metrics содержит метрики Prometheus движка токеномики.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mmeshcher/yieldmart/internal/model"
)

// Metrics хранит все метрики приложения.
type Metrics struct {
	Events       *prometheus.CounterVec
	EventAmounts *prometheus.CounterVec
	Failures     *prometheus.CounterVec
}

// New создаёт и регистрирует метрики в reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "yieldmart_events_total",
			Help: "Total number of emitted engine events by kind",
		}, []string{"kind"}),
		EventAmounts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "yieldmart_event_amount_total",
			Help: "Sum of token amounts carried by engine events by kind and currency",
		}, []string{"kind", "currency"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "yieldmart_failures_total",
			Help: "Total number of failed engine operations by operation and error code",
		}, []string{"operation", "code"}),
	}
}

// Publish учитывает событие. Реализует приёмник событий.
func (m *Metrics) Publish(_ context.Context, e model.Event) error {
	m.Events.WithLabelValues(string(e.Kind)).Inc()
	if e.Amount > 0 {
		currency := string(e.Currency)
		if currency == "" {
			currency = string(model.CurrencyPrimary)
		}
		m.EventAmounts.WithLabelValues(string(e.Kind), currency).Add(float64(e.Amount))
	}
	return nil
}

// ObserveFailure учитывает неуспешную операцию.
func (m *Metrics) ObserveFailure(operation string, err error) {
	m.Failures.WithLabelValues(operation, model.ErrorCode(err)).Inc()
}
