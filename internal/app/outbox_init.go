package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordering/internal/config"
	"github.com/vladislavdragonenkov/ordering/internal/domain"
	"github.com/vladislavdragonenkov/ordering/internal/metrics"
	"github.com/vladislavdragonenkov/ordering/internal/service/outbox"
)

// newRetentionWorker собирает очистку отправленных сообщений outbox.
// Работает и без Kafka: удалять нечего, но backlog не растёт от старых записей.
func newRetentionWorker(cfg config.Config, repo domain.OutboxPurger, m *metrics.OutboxMetrics, logger *log.Entry) *outbox.RetentionWorker {
	if !cfg.Outbox.Enabled || cfg.Outbox.Retention <= 0 {
		logger.Info("outbox retention disabled by configuration")
		return nil
	}
	return outbox.NewRetentionWorker(repo, outbox.RetentionOptions{
		Logger:   logger.WithField("layer", "outbox-retention"),
		Metrics:  m,
		Interval: cfg.Outbox.PurgeInterval,
		MaxAge:   cfg.Outbox.Retention,
	})
}
