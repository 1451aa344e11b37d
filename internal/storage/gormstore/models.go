package gormstore

import (
	"time"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

type cardTypeModel struct {
	ID   int    `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name string `gorm:"column:name;not null"`
}

func (cardTypeModel) TableName() string { return "card_types" }

type orderStatusModel struct {
	ID   int    `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name string `gorm:"column:name;not null"`
}

func (orderStatusModel) TableName() string { return "order_status" }

type buyerModel struct {
	ID             int64                `gorm:"column:id;primaryKey"`
	IdentityGUID   string               `gorm:"column:identity_guid;not null;uniqueIndex:uq_buyers_identity_guid"`
	Name           string               `gorm:"column:name;not null"`
	PaymentMethods []paymentMethodModel `gorm:"foreignKey:BuyerID"`
}

func (buyerModel) TableName() string { return "buyers" }

type paymentMethodModel struct {
	ID             int64                     `gorm:"column:id;primaryKey"`
	BuyerID        int64                     `gorm:"column:buyer_id;not null;index"`
	CardTypeID     int                       `gorm:"column:card_type_id;not null"`
	Alias          string                    `gorm:"column:alias;not null"`
	CardNumber     string                    `gorm:"column:card_number;not null"`
	SecurityNumber string                    `gorm:"column:security_number;not null"`
	CardHolderName string                    `gorm:"column:card_holder_name;not null"`
	Expiration     time.Time                 `gorm:"column:expiration;not null"`
	Orders         []paymentMethodOrderModel `gorm:"foreignKey:PaymentMethodID"`
}

func (paymentMethodModel) TableName() string { return "payment_methods" }

type paymentMethodOrderModel struct {
	PaymentMethodID int64 `gorm:"column:payment_method_id;primaryKey;autoIncrement:false"`
	OrderID         int64 `gorm:"column:order_id;primaryKey;autoIncrement:false"`
}

func (paymentMethodOrderModel) TableName() string { return "payment_method_orders" }

type orderModel struct {
	ID                 int64            `gorm:"column:id;primaryKey"`
	BuyerID            *int64           `gorm:"column:buyer_id;index"`
	PaymentMethodID    *int64           `gorm:"column:payment_method_id"`
	UserID             string           `gorm:"column:user_id;not null"`
	UserName           string           `gorm:"column:user_name;not null"`
	Street             string           `gorm:"column:street;not null"`
	City               string           `gorm:"column:city;not null"`
	State              string           `gorm:"column:state;not null"`
	Country            string           `gorm:"column:country;not null"`
	ZipCode            string           `gorm:"column:zip_code;not null"`
	CardTypeID         int              `gorm:"column:card_type_id;not null"`
	CardNumber         string           `gorm:"column:card_number;not null"`
	CardSecurityNumber string           `gorm:"column:card_security_number;not null"`
	CardHolderName     string           `gorm:"column:card_holder_name;not null"`
	CardExpiration     time.Time        `gorm:"column:card_expiration;not null"`
	OrderStatusID      int              `gorm:"column:order_status_id;not null"`
	Status             orderStatusModel `gorm:"foreignKey:OrderStatusID"`
	Description        string           `gorm:"column:description;not null"`
	OrderDate          time.Time        `gorm:"column:order_date;not null"`
	Items              []orderItemModel `gorm:"foreignKey:OrderID"`
}

func (orderModel) TableName() string { return "orders" }

type orderItemModel struct {
	ID             int64  `gorm:"column:id;primaryKey"`
	OrderID        int64  `gorm:"column:order_id;not null;index"`
	ProductID      int64  `gorm:"column:product_id;not null"`
	ProductName    string `gorm:"column:product_name;not null"`
	UnitPriceMinor int64  `gorm:"column:unit_price_minor;not null"`
	DiscountMinor  int64  `gorm:"column:discount_minor;not null"`
	Units          int    `gorm:"column:units;not null"`
	PictureURL     string `gorm:"column:picture_url;not null"`
}

func (orderItemModel) TableName() string { return "order_items" }

type outboxMessageModel struct {
	ID            string    `gorm:"column:id;primaryKey"`
	AggregateType string    `gorm:"column:aggregate_type;not null"`
	AggregateID   string    `gorm:"column:aggregate_id;not null"`
	EventType     string    `gorm:"column:event_type;not null"`
	Payload       []byte    `gorm:"column:payload;not null"`
	Status        string    `gorm:"column:status;not null;default:pending"`
	AttemptCount  int       `gorm:"column:attempt_count;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null"`
}

func (outboxMessageModel) TableName() string { return "outbox_messages" }

func allModels() []any {
	return []any{
		&cardTypeModel{},
		&orderStatusModel{},
		&buyerModel{},
		&paymentMethodModel{},
		&orderModel{},
		&orderItemModel{},
		&paymentMethodOrderModel{},
		&outboxMessageModel{},
	}
}

func orderToModel(o *domain.Order) orderModel {
	s := o.Snapshot()
	m := orderModel{
		ID:                 s.ID,
		BuyerID:            s.BuyerID,
		PaymentMethodID:    s.PaymentMethodID,
		UserID:             s.UserID,
		UserName:           s.UserName,
		Street:             s.Address.Street,
		City:               s.Address.City,
		State:              s.Address.State,
		Country:            s.Address.Country,
		ZipCode:            s.Address.ZipCode,
		CardTypeID:         s.Card.CardTypeID,
		CardNumber:         s.Card.CardNumber,
		CardSecurityNumber: s.Card.SecurityNumber,
		CardHolderName:     s.Card.HolderName,
		CardExpiration:     s.Card.Expiration.UTC(),
		OrderStatusID:      int(s.Status),
		Description:        s.Description,
		OrderDate:          s.OrderDate.UTC(),
		Items:              make([]orderItemModel, 0, len(s.Items)),
	}
	for _, item := range s.Items {
		m.Items = append(m.Items, orderItemModel{
			ID:             item.ID,
			OrderID:        s.ID,
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			UnitPriceMinor: int64(item.UnitPrice),
			DiscountMinor:  int64(item.Discount),
			Units:          item.Units,
			PictureURL:     item.PictureURL,
		})
	}
	return m
}

func orderFromModel(m orderModel) *domain.Order {
	s := domain.OrderSnapshot{
		ID:              m.ID,
		BuyerID:         m.BuyerID,
		PaymentMethodID: m.PaymentMethodID,
		UserID:          m.UserID,
		UserName:        m.UserName,
		Address: domain.Address{
			Street:  m.Street,
			City:    m.City,
			State:   m.State,
			Country: m.Country,
			ZipCode: m.ZipCode,
		},
		Card: domain.CardSnapshot{
			CardTypeID:     m.CardTypeID,
			CardNumber:     m.CardNumber,
			SecurityNumber: m.CardSecurityNumber,
			HolderName:     m.CardHolderName,
			Expiration:     m.CardExpiration.UTC(),
		},
		Status:      domain.OrderStatus(m.OrderStatusID),
		Description: m.Description,
		OrderDate:   m.OrderDate.UTC(),
		Items:       make([]domain.OrderItemSnapshot, 0, len(m.Items)),
	}
	for _, item := range m.Items {
		s.Items = append(s.Items, domain.OrderItemSnapshot{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   domain.Money(item.UnitPriceMinor),
			Discount:    domain.Money(item.DiscountMinor),
			Units:       item.Units,
			PictureURL:  item.PictureURL,
		})
	}
	return domain.RestoreOrder(s)
}

func buyerToModel(b *domain.Buyer) buyerModel {
	s := b.Snapshot()
	m := buyerModel{
		ID:             s.ID,
		IdentityGUID:   s.Identity,
		Name:           s.Name,
		PaymentMethods: make([]paymentMethodModel, 0, len(s.PaymentMethods)),
	}
	for _, pm := range s.PaymentMethods {
		pmm := paymentMethodModel{
			ID:             pm.ID,
			BuyerID:        s.ID,
			CardTypeID:     pm.CardTypeID,
			Alias:          pm.Alias,
			CardNumber:     pm.CardNumber,
			SecurityNumber: pm.SecurityNumber,
			CardHolderName: pm.CardHolderName,
			Expiration:     pm.Expiration.UTC(),
			Orders:         make([]paymentMethodOrderModel, 0, len(pm.OrderIDs)),
		}
		for _, orderID := range pm.OrderIDs {
			pmm.Orders = append(pmm.Orders, paymentMethodOrderModel{PaymentMethodID: pm.ID, OrderID: orderID})
		}
		m.PaymentMethods = append(m.PaymentMethods, pmm)
	}
	return m
}

func buyerFromModel(m buyerModel) *domain.Buyer {
	s := domain.BuyerSnapshot{
		ID:             m.ID,
		Identity:       m.IdentityGUID,
		Name:           m.Name,
		PaymentMethods: make([]domain.PaymentMethodSnapshot, 0, len(m.PaymentMethods)),
	}
	for _, pm := range m.PaymentMethods {
		orderIDs := make([]int64, 0, len(pm.Orders))
		for _, link := range pm.Orders {
			orderIDs = append(orderIDs, link.OrderID)
		}
		s.PaymentMethods = append(s.PaymentMethods, domain.PaymentMethodSnapshot{
			ID:             pm.ID,
			CardTypeID:     pm.CardTypeID,
			Alias:          pm.Alias,
			CardNumber:     pm.CardNumber,
			SecurityNumber: pm.SecurityNumber,
			CardHolderName: pm.CardHolderName,
			Expiration:     pm.Expiration.UTC(),
			OrderIDs:       orderIDs,
		})
	}
	return domain.RestoreBuyer(s)
}

func outboxToModel(msg domain.OutboxMessage, now time.Time) outboxMessageModel {
	return outboxMessageModel{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       msg.Payload,
		Status:        outboxStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
