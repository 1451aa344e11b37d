// Package outbox доставляет доменные события заказов и покупателей из
// transactional outbox в брокер и чистит опубликованные записи.
package outbox

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
	"github.com/vladislavdragonenkov/ordering/internal/metrics"
)

const (
	defaultPollInterval = time.Second
	defaultBatchSize    = 100
	defaultMaxAttempts  = 3
	defaultConcurrency  = 4
	maxRetryDelay       = 5 * time.Second
)

// WorkerOptions задаёт параметры доставки.
type WorkerOptions struct {
	Logger  *log.Entry
	Metrics *metrics.OutboxMetrics
	// DeadLetters получает события, для которых исчерпаны попытки.
	DeadLetters domain.OutboxPublisher

	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
	// Concurrency — сколько агрегатов доставляется одновременно.
	// События одного агрегата всегда уходят по очереди.
	Concurrency int

	Now func() time.Time
}

// BatchReport — итог одного прохода по outbox.
type BatchReport struct {
	Pulled   int
	Sent     int
	Failed   int
	Deferred int
}

func (r *BatchReport) add(other BatchReport) {
	r.Sent += other.Sent
	r.Failed += other.Failed
	r.Deferred += other.Deferred
}

// Worker публикует события из outbox с сохранением порядка внутри агрегата.
type Worker struct {
	repo        domain.OutboxRepository
	publisher   domain.OutboxPublisher
	deadLetters domain.OutboxPublisher
	logger      *log.Entry
	metrics     *metrics.OutboxMetrics

	pollInterval   time.Duration
	batchSize      int
	maxAttempts    int
	retryBaseDelay time.Duration
	concurrency    int
	now            func() time.Time
}

// NewWorker создаёт worker доставки.
func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, opts WorkerOptions) *Worker {
	w := &Worker{
		repo:           repo,
		publisher:      publisher,
		deadLetters:    opts.DeadLetters,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		pollInterval:   opts.PollInterval,
		batchSize:      opts.BatchSize,
		maxAttempts:    opts.MaxAttempts,
		retryBaseDelay: max(opts.RetryBaseDelay, 0),
		concurrency:    opts.Concurrency,
		now:            opts.Now,
	}
	if w.logger == nil {
		w.logger = log.WithField("component", "outbox-worker")
	}
	if w.pollInterval <= 0 {
		w.pollInterval = defaultPollInterval
	}
	if w.batchSize <= 0 {
		w.batchSize = defaultBatchSize
	}
	if w.maxAttempts <= 0 {
		w.maxAttempts = defaultMaxAttempts
	}
	if w.concurrency <= 0 {
		w.concurrency = defaultConcurrency
	}
	if w.now == nil {
		w.now = func() time.Time { return time.Now().UTC() }
	}
	return w
}

// Run опрашивает outbox раз в pollInterval до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.logger.Warn("outbox worker is disabled: repo or publisher is nil")
		return
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		report := w.ProcessOnce(ctx)
		if report.Pulled > 0 {
			w.logger.WithFields(log.Fields{
				"pulled":   report.Pulled,
				"sent":     report.Sent,
				"failed":   report.Failed,
				"deferred": report.Deferred,
			}).Debug("outbox batch processed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessOnce забирает один батч pending-событий и доставляет его.
func (w *Worker) ProcessOnce(ctx context.Context) BatchReport {
	if ctx.Err() != nil {
		return BatchReport{}
	}
	defer w.refreshBacklog()

	batch, err := w.repo.PullPending(w.batchSize)
	if err != nil {
		w.logger.WithError(err).Warn("failed to pull pending outbox messages")
		return BatchReport{}
	}

	report := w.dispatch(ctx, batch)
	report.Pulled = len(batch)
	return report
}

func (w *Worker) refreshBacklog() {
	stats, err := w.repo.Stats()
	if err != nil {
		w.logger.WithError(err).Warn("failed to collect outbox backlog stats")
		return
	}

	var age time.Duration
	if stats.PendingCount > 0 && !stats.OldestPendingAt.IsZero() {
		age = w.now().Sub(stats.OldestPendingAt)
	}
	w.metrics.SetBacklog(stats.PendingCount, age)
}
