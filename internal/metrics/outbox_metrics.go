package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics — метрики доставки transactional outbox.
type OutboxMetrics struct {
	publishAttempts  *prometheus.CounterVec
	pendingRecords   prometheus.Gauge
	oldestPendingAge prometheus.Gauge
	purgeRuns        *prometheus.CounterVec
	purgedRecords    prometheus.Counter
}

// NewOutboxMetrics регистрирует метрики в DefaultRegisterer.
func NewOutboxMetrics() *OutboxMetrics {
	return NewOutboxMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOutboxMetricsWithRegisterer регистрирует метрики в переданном registerer.
func NewOutboxMetricsWithRegisterer(registerer prometheus.Registerer) *OutboxMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OutboxMetrics{
		publishAttempts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ordering_outbox_publish_attempts_total",
			Help: "Total number of outbox publish attempts grouped by domain event type and result.",
		}, []string{"event_type", "result"}),
		pendingRecords: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "ordering_outbox_pending_records",
			Help: "Current number of pending records in transactional outbox.",
		}),
		oldestPendingAge: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "ordering_outbox_oldest_pending_age_seconds",
			Help: "Age in seconds of the oldest pending outbox record.",
		}),
		purgeRuns: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ordering_outbox_purge_runs_total",
			Help: "Total number of outbox retention runs grouped by result.",
		}, []string{"result"}),
		purgedRecords: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ordering_outbox_purged_records_total",
			Help: "Total number of sent outbox records deleted by retention.",
		}),
	}
}

// RecordPublish учитывает исход публикации события: sent, retry_error,
// failed, dlq_failed или deferred.
func (m *OutboxMetrics) RecordPublish(eventType, result string) {
	if m == nil {
		return
	}
	m.publishAttempts.WithLabelValues(eventType, result).Inc()
}

// SetBacklog обновляет размер backlog и возраст самой старой записи.
func (m *OutboxMetrics) SetBacklog(pending int, oldestAge time.Duration) {
	if m == nil {
		return
	}
	if oldestAge < 0 {
		oldestAge = 0
	}
	m.pendingRecords.Set(float64(pending))
	m.oldestPendingAge.Set(oldestAge.Seconds())
}

// RecordPurge учитывает прогон retention: ok или error.
func (m *OutboxMetrics) RecordPurge(result string, deleted int) {
	if m == nil {
		return
	}
	m.purgeRuns.WithLabelValues(result).Inc()
	if deleted > 0 {
		m.purgedRecords.Add(float64(deleted))
	}
}
