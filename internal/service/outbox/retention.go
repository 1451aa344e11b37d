package outbox

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
	"github.com/vladislavdragonenkov/ordering/internal/metrics"
)

const (
	defaultRetentionInterval  = 10 * time.Minute
	defaultRetentionBatchSize = 500
	defaultRetentionMaxAge    = 7 * 24 * time.Hour
)

// RetentionOptions задаёт параметры очистки опубликованных сообщений.
type RetentionOptions struct {
	Logger    *log.Entry
	Metrics   *metrics.OutboxMetrics
	Interval  time.Duration
	BatchSize int
	// MaxAge — сколько хранить сообщение после публикации.
	MaxAge time.Duration
	Now    func() time.Time
}

// RetentionWorker периодически удаляет из outbox сообщения в статусе sent.
// Pending и failed сообщения не трогает.
type RetentionWorker struct {
	repo      domain.OutboxPurger
	logger    *log.Entry
	metrics   *metrics.OutboxMetrics
	interval  time.Duration
	batchSize int
	maxAge    time.Duration
	now       func() time.Time
}

// NewRetentionWorker создаёт воркер очистки outbox.
func NewRetentionWorker(repo domain.OutboxPurger, opts RetentionOptions) *RetentionWorker {
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "outbox-retention")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultRetentionInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultRetentionBatchSize
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = defaultRetentionMaxAge
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	return &RetentionWorker{
		repo:      repo,
		logger:    logger,
		metrics:   opts.Metrics,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
		maxAge:    opts.MaxAge,
		now:       opts.Now,
	}
}

// Run выполняет очистку сразу и затем раз в interval до отмены ctx.
func (w *RetentionWorker) Run(ctx context.Context) {
	if w.repo == nil {
		w.logger.Warn("outbox retention is disabled: repo is nil")
		return
	}

	w.cleanup(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *RetentionWorker) cleanup(ctx context.Context) {
	deleted, err := w.Purge(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		w.metrics.RecordPurge("error", deleted)
		w.logger.WithError(err).Warn("outbox retention run failed")
		return
	}

	w.metrics.RecordPurge("ok", deleted)
	if deleted > 0 {
		w.logger.WithField("deleted", deleted).Info("outbox retention completed")
	}
}

// Purge удаляет порциями все sent-сообщения старше maxAge.
func (w *RetentionWorker) Purge(ctx context.Context) (int, error) {
	before := w.now().Add(-w.maxAge)

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		deleted, err := w.repo.DeleteSentBefore(before, w.batchSize)
		if err != nil {
			return total, err
		}
		total += deleted

		if deleted < w.batchSize {
			return total, nil
		}
	}
}
