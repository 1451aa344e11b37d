package gormstore

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

type buyerRepository struct {
	db *gorm.DB
}

// Add вставляет покупателя вместе со способами оплаты. Повтор identity
// возвращает ErrDuplicateBuyer.
func (r *buyerRepository) Add(ctx context.Context, buyer *domain.Buyer) error {
	restore := keepBuyerIDs(buyer)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := buyerToModel(buyer)
		m.ID = 0
		if err := tx.Omit(clause.Associations).Create(&m).Error; err != nil {
			return err
		}
		return r.persistPaymentMethods(tx, buyer, m)
	})
	if err != nil {
		restore()
		return mapWriteError("add buyer", err)
	}
	buyer.ClearDomainEvents()
	return nil
}

// Update сохраняет новые способы оплаты и связи способов оплаты с заказами.
func (r *buyerRepository) Update(ctx context.Context, buyer *domain.Buyer) error {
	if buyer.ID() == 0 {
		return domain.ErrBuyerNotFound
	}
	restore := keepBuyerIDs(buyer)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&buyerModel{}).Where("id = ?", buyer.ID()).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrBuyerNotFound
		}

		m := buyerToModel(buyer)
		if err := tx.Omit(clause.Associations).Save(&m).Error; err != nil {
			return err
		}
		return r.persistPaymentMethods(tx, buyer, m)
	})
	if err != nil {
		restore()
		return mapWriteError("update buyer", err)
	}
	buyer.ClearDomainEvents()
	return nil
}

func keepBuyerIDs(buyer *domain.Buyer) (restore func()) {
	id := buyer.ID()
	methods := buyer.PaymentMethods()
	ids := make([]int64, len(methods))
	for i, pm := range methods {
		ids[i] = pm.ID()
	}
	return func() { _ = buyer.AssignIDs(id, ids) }
}

func (r *buyerRepository) persistPaymentMethods(tx *gorm.DB, buyer *domain.Buyer, m buyerModel) error {
	ids := make([]int64, 0, len(m.PaymentMethods))
	for i := range m.PaymentMethods {
		pm := m.PaymentMethods[i]
		pm.BuyerID = m.ID
		if pm.ID == 0 {
			if err := tx.Omit(clause.Associations).Create(&pm).Error; err != nil {
				return err
			}
		} else if err := tx.Omit(clause.Associations).Save(&pm).Error; err != nil {
			return err
		}
		ids = append(ids, pm.ID)

		if len(pm.Orders) == 0 {
			continue
		}
		links := make([]paymentMethodOrderModel, 0, len(pm.Orders))
		for _, link := range pm.Orders {
			links = append(links, paymentMethodOrderModel{PaymentMethodID: pm.ID, OrderID: link.OrderID})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
			return err
		}
	}
	if err := buyer.AssignIDs(m.ID, ids); err != nil {
		return err
	}

	msgs, err := domain.BuyerOutboxMessages(buyer)
	if err != nil {
		return err
	}
	return writeOutbox(tx, msgs)
}

// FindByIdentity загружает покупателя со способами оплаты и их заказами.
func (r *buyerRepository) FindByIdentity(ctx context.Context, identity string) (*domain.Buyer, error) {
	var m buyerModel
	err := r.db.WithContext(ctx).
		Preload("PaymentMethods", orderByID).
		Preload("PaymentMethods.Orders", func(db *gorm.DB) *gorm.DB { return db.Order("order_id") }).
		Where("identity_guid = ?", identity).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrBuyerNotFound
	}
	if err != nil {
		return nil, domain.StoreUnavailable("find buyer", err)
	}
	return buyerFromModel(m), nil
}

var _ domain.BuyerRepository = (*buyerRepository)(nil)
