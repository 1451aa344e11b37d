package gormstore

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

type orderRepository struct {
	db *gorm.DB
}

// Add вставляет заказ и позиции, назначает идентификаторы и пишет события
// в outbox одной транзакцией.
func (r *orderRepository) Add(ctx context.Context, order *domain.Order) error {
	restore := keepOrderIDs(order)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := orderToModel(order)
		m.ID = 0
		if err := tx.Omit(clause.Associations).Create(&m).Error; err != nil {
			return err
		}
		return r.persistItems(tx, order, m)
	})
	if err != nil {
		restore()
		return mapWriteError("add order", err)
	}
	order.ClearDomainEvents()
	return nil
}

// Update перезаписывает заказ; новые позиции вставляются, существующие обновляются.
func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	if order.ID() == 0 {
		return domain.ErrOrderNotFound
	}
	restore := keepOrderIDs(order)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&orderModel{}).Where("id = ?", order.ID()).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrOrderNotFound
		}

		m := orderToModel(order)
		if err := tx.Omit(clause.Associations).Save(&m).Error; err != nil {
			return err
		}
		return r.persistItems(tx, order, m)
	})
	if err != nil {
		restore()
		return mapWriteError("update order", err)
	}
	order.ClearDomainEvents()
	return nil
}

// keepOrderIDs запоминает идентификаторы заказа и позиций. Outbox строится
// уже с выданными id, поэтому при откате транзакции их нужно вернуть.
func keepOrderIDs(order *domain.Order) (restore func()) {
	id := order.ID()
	items := order.OrderItems()
	itemIDs := make([]int64, len(items))
	for i, item := range items {
		itemIDs[i] = item.ID()
	}
	return func() { _ = order.AssignIDs(id, itemIDs) }
}

func (r *orderRepository) persistItems(tx *gorm.DB, order *domain.Order, m orderModel) error {
	itemIDs := make([]int64, 0, len(m.Items))
	for i := range m.Items {
		item := m.Items[i]
		item.OrderID = m.ID
		if item.ID == 0 {
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		} else if err := tx.Save(&item).Error; err != nil {
			return err
		}
		itemIDs = append(itemIDs, item.ID)
	}
	if err := order.AssignIDs(m.ID, itemIDs); err != nil {
		return err
	}

	msgs, err := domain.OrderOutboxMessages(order)
	if err != nil {
		return err
	}
	return writeOutbox(tx, msgs)
}

// Get загружает заказ с позициями в порядке их добавления.
func (r *orderRepository) Get(ctx context.Context, id int64) (*domain.Order, error) {
	m, err := loadOrder(r.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return orderFromModel(m), nil
}

func loadOrder(db *gorm.DB, id int64) (orderModel, error) {
	var m orderModel
	err := db.Preload("Items", orderByID).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return orderModel{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return orderModel{}, domain.StoreUnavailable("get order", err)
	}
	return m, nil
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}

// mapWriteError сохраняет доменные ошибки и заворачивает остальные в ErrStoreUnavailable.
func mapWriteError(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrDuplicateBuyer),
		domain.IsValidation(err):
		return err
	case isUniqueViolation(err):
		return domain.ErrDuplicateBuyer
	default:
		return domain.StoreUnavailable(op, err)
	}
}

var _ domain.OrderRepository = (*orderRepository)(nil)
