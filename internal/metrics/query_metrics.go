package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

// Значения label kind для ошибок read-путей.
const (
	ErrorKindNotFound    = "not_found"
	ErrorKindCanceled    = "canceled"
	ErrorKindTimeout     = "timeout"
	ErrorKindUnavailable = "store_unavailable"
	ErrorKindOther       = "other"
)

// QueryMetrics — метрики read-путей и их сверки.
type QueryMetrics struct {
	duration    *prometheus.HistogramVec
	errors      *prometheus.CounterVec
	comparisons *prometheus.CounterVec
	divergences *prometheus.CounterVec
}

// NewQueryMetrics регистрирует метрики в DefaultRegisterer.
func NewQueryMetrics() *QueryMetrics {
	return NewQueryMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewQueryMetricsWithRegisterer регистрирует метрики в переданном registerer;
// повторная регистрация возвращает уже существующие коллекторы.
func NewQueryMetricsWithRegisterer(registerer prometheus.Registerer) *QueryMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &QueryMetrics{
		duration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "ordering_query_duration_seconds",
			Help:    "Duration of read-path queries in seconds.",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"path", "query"}),
		errors: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ordering_query_errors_total",
			Help: "Total number of failed read-path queries grouped by error kind.",
		}, []string{"path", "query", "kind"}),
		comparisons: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ordering_query_comparisons_total",
			Help: "Total number of shadow comparisons between read paths.",
		}, []string{"query"}),
		divergences: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ordering_query_divergence_total",
			Help: "Total number of shadow comparisons where read paths returned different results.",
		}, []string{"query"}),
	}
}

// ObserveQuery записывает длительность запроса и, если он завершился ошибкой, её вид.
func (m *QueryMetrics) ObserveQuery(path, query string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(path, query).Observe(duration.Seconds())
	if err != nil {
		m.errors.WithLabelValues(path, query, ErrorKind(err)).Inc()
	}
}

// RecordComparison учитывает одну сверку путей и её исход.
func (m *QueryMetrics) RecordComparison(query string, diverged bool) {
	if m == nil {
		return
	}
	m.comparisons.WithLabelValues(query).Inc()
	if diverged {
		m.divergences.WithLabelValues(query).Inc()
	}
}

// ErrorKind классифицирует ошибку read-пути для label kind.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case domain.IsNotFound(err):
		return ErrorKindNotFound
	case errors.Is(err, context.Canceled):
		return ErrorKindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorKindTimeout
	case errors.Is(err, domain.ErrStoreUnavailable):
		return ErrorKindUnavailable
	default:
		return ErrorKindOther
	}
}
