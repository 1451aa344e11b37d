package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

// orderQueries — ORM read-путь: загружает агрегаты и строит из них проекции.
// Название статуса берётся из справочника order_status, как и в SQL-пути.
type orderQueries struct {
	db *gorm.DB
}

func (q *orderQueries) GetOrder(ctx context.Context, id int64) (domain.OrderDetail, error) {
	m, err := loadOrder(q.db.WithContext(ctx).Preload("Status"), id)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	detail := domain.NewOrderDetail(orderFromModel(m))
	detail.Status = m.Status.Name
	return detail, nil
}

func (q *orderQueries) GetOrdersFromUser(ctx context.Context, buyerIdentity string) ([]domain.OrderSummary, error) {
	var models []orderModel
	err := q.db.WithContext(ctx).
		Preload("Items", orderByID).
		Preload("Status").
		Joins("JOIN buyers ON buyers.id = orders.buyer_id").
		Where("buyers.identity_guid = ?", buyerIdentity).
		Order("orders.id").
		Find(&models).Error
	if err != nil {
		return nil, domain.StoreUnavailable("list orders", err)
	}

	result := make([]domain.OrderSummary, 0, len(models))
	for _, m := range models {
		summary := domain.NewOrderSummary(orderFromModel(m))
		summary.Status = m.Status.Name
		result = append(result, summary)
	}
	return result, nil
}

func (q *orderQueries) GetCardTypes(ctx context.Context) ([]domain.CardType, error) {
	var models []cardTypeModel
	if err := q.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, domain.StoreUnavailable("list card types", err)
	}

	result := make([]domain.CardType, 0, len(models))
	for _, m := range models {
		result = append(result, domain.CardType{ID: m.ID, Name: m.Name})
	}
	return result, nil
}

var _ domain.OrderQueries = (*orderQueries)(nil)
