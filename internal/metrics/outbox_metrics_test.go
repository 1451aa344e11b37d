package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetricsWithRegisterer(reg)

	m.RecordPublish("order.started", "sent")
	m.RecordPublish("order.started", "sent")
	m.RecordPublish("order.status_changed", "sent")
	m.RecordPublish("order.started", "failed")
	m.SetBacklog(3, 1500*time.Millisecond)

	if got := testutil.ToFloat64(m.publishAttempts.WithLabelValues("order.started", "sent")); got != 2 {
		t.Fatalf("expected 2 sent, got %v", got)
	}
	if got := testutil.ToFloat64(m.publishAttempts.WithLabelValues("order.status_changed", "sent")); got != 1 {
		t.Fatalf("expected 1 sent status change, got %v", got)
	}
	if got := testutil.ToFloat64(m.pendingRecords); got != 3 {
		t.Fatalf("expected pending=3, got %v", got)
	}
	if got := testutil.ToFloat64(m.oldestPendingAge); got != 1.5 {
		t.Fatalf("expected oldest age 1.5s, got %v", got)
	}

	m.SetBacklog(0, -time.Second)
	if got := testutil.ToFloat64(m.oldestPendingAge); got != 0 {
		t.Fatalf("expected negative age clamped to 0, got %v", got)
	}
}

func TestOutboxMetrics_RecordPurge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetricsWithRegisterer(reg)

	m.RecordPurge("ok", 5)
	m.RecordPurge("ok", 0)
	m.RecordPurge("error", 0)

	if got := testutil.ToFloat64(m.purgeRuns.WithLabelValues("ok")); got != 2 {
		t.Fatalf("expected 2 ok runs, got %v", got)
	}
	if got := testutil.ToFloat64(m.purgedRecords); got != 5 {
		t.Fatalf("expected 5 purged records, got %v", got)
	}

	var nilMetrics *OutboxMetrics
	nilMetrics.RecordPurge("ok", 1)
}
