package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordering/internal/config"
	"github.com/vladislavdragonenkov/ordering/internal/domain"
	"github.com/vladislavdragonenkov/ordering/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ordering/internal/metrics"
	"github.com/vladislavdragonenkov/ordering/internal/service/outbox"
)

// initKafkaProducer инициализирует Kafka producer если brokers не пустой.
// Возвращает nil, nil если brokers пустой.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

// newOutboxWorker собирает worker доменных событий. Без producer события
// остаются pending до появления Kafka.
func newOutboxWorker(cfg config.Config, repo domain.OutboxRepository, producer *kafka.Producer, m *metrics.OutboxMetrics, logger *log.Entry) *outbox.Worker {
	if !cfg.Outbox.Enabled {
		logger.Info("outbox worker disabled by configuration")
		return nil
	}
	if producer == nil {
		logger.Warn("outbox worker is not started: kafka brokers are not configured")
		return nil
	}

	return outbox.NewWorker(repo, kafka.NewOutboxPublisher(producer, cfg.Kafka.Topic), outbox.WorkerOptions{
		Logger:         logger.WithField("layer", "outbox"),
		Metrics:        m,
		DeadLetters:    kafka.NewDLQPublisher(producer),
		PollInterval:   cfg.Outbox.PollInterval,
		BatchSize:      cfg.Outbox.BatchSize,
		MaxAttempts:    cfg.Outbox.MaxAttempts,
		RetryBaseDelay: cfg.Outbox.RetryBaseDelay,
		Concurrency:    cfg.Outbox.Concurrency,
	})
}
