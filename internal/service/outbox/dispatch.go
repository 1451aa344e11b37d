package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

// DeadLetter — тело сообщения в DLQ; его разбирает cmd/dlq-replay.
type DeadLetter struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
	FailedAt      time.Time       `json:"dlq_published_at"`
}

type aggregateKey struct {
	Type string
	ID   string
}

// aggregateStream — события одного агрегата в порядке записи в outbox.
type aggregateStream struct {
	key    aggregateKey
	events []domain.OutboxMessage
}

// splitByAggregate группирует батч по агрегатам. Агрегаты идут в порядке
// первого появления, события внутри агрегата не переставляются.
func splitByAggregate(batch []domain.OutboxMessage) []aggregateStream {
	index := make(map[aggregateKey]int)
	streams := make([]aggregateStream, 0)
	for _, msg := range batch {
		key := aggregateKey{Type: msg.AggregateType, ID: msg.AggregateID}
		i, ok := index[key]
		if !ok {
			i = len(streams)
			index[key] = i
			streams = append(streams, aggregateStream{key: key})
		}
		streams[i].events = append(streams[i].events, msg)
	}
	return streams
}

func (w *Worker) dispatch(ctx context.Context, batch []domain.OutboxMessage) BatchReport {
	var (
		mu     sync.Mutex
		report BatchReport
		g      errgroup.Group
	)
	g.SetLimit(w.concurrency)

	for _, stream := range splitByAggregate(batch) {
		g.Go(func() error {
			r := w.deliverStream(ctx, stream)
			mu.Lock()
			report.add(r)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return report
}

// deliverStream публикует события агрегата по очереди. После первого
// неудачного события остальные остаются pending до следующего опроса.
func (w *Worker) deliverStream(ctx context.Context, stream aggregateStream) BatchReport {
	logger := w.logger.WithFields(log.Fields{
		"aggregate_type": stream.key.Type,
		"aggregate_id":   stream.key.ID,
	})

	var report BatchReport
	for i, event := range stream.events {
		if ctx.Err() != nil {
			report.Deferred += len(stream.events) - i
			return report
		}

		err := w.publishWithRetry(ctx, event)
		if err == nil {
			report.Sent++
			if markErr := w.repo.MarkSent(event.ID); markErr != nil {
				logger.WithError(markErr).WithField("outbox_id", event.ID).Warn("failed to mark outbox as sent")
			}
			continue
		}

		rest := stream.events[i+1:]
		if ctx.Err() != nil {
			// Остановка посреди retry не считается отказом брокера.
			report.Deferred += len(rest) + 1
			return report
		}

		w.moveToFailed(logger, event, err)
		report.Failed++
		report.Deferred += len(rest)
		for _, later := range rest {
			w.metrics.RecordPublish(later.EventType, "deferred")
		}
		if len(rest) > 0 {
			logger.WithField("deferred", len(rest)).Warn("later aggregate events left for next poll")
		}
		return report
	}
	return report
}

func (w *Worker) publishWithRetry(ctx context.Context, event domain.OutboxMessage) error {
	for attempt := 1; ; attempt++ {
		err := w.publisher.Publish(event)
		if err == nil {
			w.metrics.RecordPublish(event.EventType, "sent")
			return nil
		}
		w.metrics.RecordPublish(event.EventType, "retry_error")

		if attempt >= w.maxAttempts {
			return fmt.Errorf("publish %s after %d attempts: %w", event.EventType, attempt, err)
		}
		if err := sleep(ctx, retryDelay(w.retryBaseDelay, attempt)); err != nil {
			return err
		}
	}
}

// retryDelay — экспоненциальная задержка перед попыткой attempt+1,
// ограниченная maxRetryDelay.
func retryDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 || attempt < 1 {
		return 0
	}
	delay := base << min(attempt-1, 30)
	if delay <= 0 || delay > maxRetryDelay {
		return max(base, maxRetryDelay)
	}
	return delay
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// moveToFailed отправляет событие в DLQ и помечает его failed.
func (w *Worker) moveToFailed(logger *log.Entry, event domain.OutboxMessage, cause error) {
	logger = logger.WithFields(log.Fields{"outbox_id": event.ID, "event_type": event.EventType})
	logger.WithError(cause).Error("outbox publish failed after retries")
	w.metrics.RecordPublish(event.EventType, "failed")

	if err := w.publishDeadLetter(event, cause); err != nil {
		logger.WithError(err).Warn("failed to publish to DLQ")
		w.metrics.RecordPublish(event.EventType, "dlq_failed")
	}
	if err := w.repo.MarkFailed(event.ID); err != nil {
		logger.WithError(err).Warn("failed to mark outbox as failed")
	}
}

func (w *Worker) publishDeadLetter(event domain.OutboxMessage, cause error) error {
	if w.deadLetters == nil {
		return nil
	}

	payload, err := json.Marshal(DeadLetter{
		OutboxID:      event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishError:  cause.Error(),
		FailedAt:      w.now(),
	})
	if err != nil {
		return fmt.Errorf("marshal dlq payload: %w", err)
	}

	letter := event
	letter.Payload = payload
	if err := w.deadLetters.Publish(letter); err != nil {
		return fmt.Errorf("publish to dlq: %w", err)
	}
	return nil
}
