package gormstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
	outboxStatusFailed  = "failed"
)

// writeOutbox сохраняет сообщения в той же транзакции, что и агрегат.
func writeOutbox(tx *gorm.DB, msgs []domain.OutboxMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]outboxMessageModel, 0, len(msgs))
	// created_at строго возрастает внутри пачки: порядок выборки совпадает с порядком событий.
	for i, msg := range msgs {
		rows = append(rows, outboxToModel(msg, now.Add(time.Duration(i)*time.Microsecond)))
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("write outbox: %w", err)
	}
	return nil
}

const outboxOpTimeout = 5 * time.Second

// OutboxRepository — ORM-реализация domain.OutboxRepository, работающая
// и на PostgreSQL, и на SQLite.
type OutboxRepository struct {
	db *gorm.DB
}

// PullPending возвращает до limit pending-сообщений в порядке создания.
func (r *OutboxRepository) PullPending(limit int) ([]domain.OutboxMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), outboxOpTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	var rows []outboxMessageModel
	err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at").Order("id").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, domain.StoreUnavailable("pull pending outbox messages", err)
	}

	result := make([]domain.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		result = append(result, domain.OutboxMessage{
			ID:            row.ID,
			AggregateType: row.AggregateType,
			AggregateID:   row.AggregateID,
			EventType:     row.EventType,
			Payload:       row.Payload,
		})
	}
	return result, nil
}

// Stats возвращает размер backlog и время самого старого pending-сообщения.
func (r *OutboxRepository) Stats() (domain.OutboxStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), outboxOpTimeout)
	defer cancel()

	db := r.db.WithContext(ctx)
	var count int64
	if err := db.Model(&outboxMessageModel{}).Where("status = ?", outboxStatusPending).Count(&count).Error; err != nil {
		return domain.OutboxStats{}, domain.StoreUnavailable("outbox stats", err)
	}
	if count == 0 {
		return domain.OutboxStats{}, nil
	}

	var oldest outboxMessageModel
	if err := db.Where("status = ?", outboxStatusPending).Order("created_at").Order("id").Take(&oldest).Error; err != nil {
		return domain.OutboxStats{}, domain.StoreUnavailable("outbox stats", err)
	}
	return domain.OutboxStats{PendingCount: int(count), OldestPendingAt: oldest.CreatedAt.UTC()}, nil
}

// MarkSent помечает сообщение опубликованным.
func (r *OutboxRepository) MarkSent(id string) error {
	return r.markStatus(id, outboxStatusSent)
}

// MarkFailed помечает сообщение, ушедшее в DLQ.
func (r *OutboxRepository) MarkFailed(id string) error {
	return r.markStatus(id, outboxStatusFailed)
}

func (r *OutboxRepository) markStatus(id, status string) error {
	ctx, cancel := context.WithTimeout(context.Background(), outboxOpTimeout)
	defer cancel()

	res := r.db.WithContext(ctx).
		Model(&outboxMessageModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        status,
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return domain.StoreUnavailable("mark outbox message", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: message %s not found", domain.ErrOutboxPublish, id)
	}
	return nil
}

// DeleteSentBefore удаляет порцию опубликованных сообщений старше before.
func (r *OutboxRepository) DeleteSentBefore(before time.Time, limit int) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), outboxOpTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 500
	}

	deleted := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&outboxMessageModel{}).
			Where("status = ? AND updated_at <= ?", outboxStatusSent, before.UTC()).
			Order("updated_at").Order("id").
			Limit(limit).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		res := tx.Where("id IN ?", ids).Delete(&outboxMessageModel{})
		if res.Error != nil {
			return res.Error
		}
		deleted = int(res.RowsAffected)
		return nil
	})
	if err != nil {
		return 0, domain.StoreUnavailable("delete sent outbox messages", err)
	}
	return deleted, nil
}

var (
	_ domain.OutboxRepository = (*OutboxRepository)(nil)
	_ domain.OutboxPurger     = (*OutboxRepository)(nil)
)
