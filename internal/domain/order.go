package domain

import (
	"fmt"
	"time"
)

// Order — корень агрегата заказа. Владеет позициями, снимком адреса и карты.
// Агрегат не потокобезопасен: параллельные изменения сериализует слой хранения.
type Order struct {
	events

	id              int64
	buyerID         *int64
	paymentMethodID *int64
	userID          string
	userName        string
	address         Address
	card            CardSnapshot
	status          OrderStatus
	description     string
	orderDate       time.Time
	items           []*OrderItem
}

// NewOrderParams — входные данные для оформления заказа.
type NewOrderParams struct {
	UserID          string
	UserName        string
	Address         Address
	Card            CardSnapshot
	BuyerID         *int64
	PaymentMethodID *int64
}

// OrderSnapshot — плоское представление заказа для слоёв хранения.
type OrderSnapshot struct {
	ID              int64
	BuyerID         *int64
	PaymentMethodID *int64
	UserID          string
	UserName        string
	Address         Address
	Card            CardSnapshot
	Status          OrderStatus
	Description     string
	OrderDate       time.Time
	Items           []OrderItemSnapshot
}

// NewOrder создаёт заказ в статусе pending и поднимает OrderStartedEvent.
func NewOrder(p NewOrderParams) (*Order, error) {
	if p.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidOrder)
	}
	if p.UserName == "" {
		return nil, fmt.Errorf("%w: user name is required", ErrInvalidOrder)
	}

	o := &Order{
		buyerID:         copyID(p.BuyerID),
		paymentMethodID: copyID(p.PaymentMethodID),
		userID:          p.UserID,
		userName:        p.UserName,
		address:         p.Address,
		card:            p.Card,
		status:          OrderStatusPending,
		orderDate:       now(),
		items:           make([]*OrderItem, 0),
	}
	o.raise(OrderStartedEvent{
		UserID:          p.UserID,
		UserName:        p.UserName,
		CardTypeID:      p.Card.CardTypeID,
		CardNumber:      p.Card.CardNumber,
		CardHolderName:  p.Card.HolderName,
		CardExpiration:  p.Card.Expiration,
		BuyerID:         copyID(p.BuyerID),
		PaymentMethodID: copyID(p.PaymentMethodID),
		Occurred:        o.orderDate,
	})
	return o, nil
}

// RestoreOrder восстанавливает агрегат из хранилища без валидации и событий.
func RestoreOrder(s OrderSnapshot) *Order {
	o := &Order{
		id:              s.ID,
		buyerID:         copyID(s.BuyerID),
		paymentMethodID: copyID(s.PaymentMethodID),
		userID:          s.UserID,
		userName:        s.UserName,
		address:         s.Address,
		card:            s.Card,
		status:          s.Status,
		description:     s.Description,
		orderDate:       s.OrderDate,
		items:           make([]*OrderItem, 0, len(s.Items)),
	}
	for _, item := range s.Items {
		o.items = append(o.items, restoreOrderItem(item))
	}
	return o
}

func (o *Order) ID() int64               { return o.id }
func (o *Order) BuyerID() *int64         { return copyID(o.buyerID) }
func (o *Order) PaymentMethodID() *int64 { return copyID(o.paymentMethodID) }
func (o *Order) UserID() string          { return o.userID }
func (o *Order) UserName() string        { return o.userName }
func (o *Order) Address() Address        { return o.address }
func (o *Order) Card() CardSnapshot      { return o.card }
func (o *Order) Status() OrderStatus     { return o.status }

// Description возвращает описание последнего изменения статуса.
func (o *Order) Description() string { return o.description }

// OrderDate — момент создания заказа.
func (o *Order) OrderDate() time.Time { return o.orderDate }

// OrderItems возвращает позиции в порядке добавления.
func (o *Order) OrderItems() []*OrderItem {
	out := make([]*OrderItem, len(o.items))
	copy(out, o.items)
	return out
}

// AddOrderItem добавляет позицию в конец списка. Ошибки валидации позиции
// возвращаются как есть, заказ при этом не меняется.
func (o *Order) AddOrderItem(productID int64, productName string, unitPrice, discount Money, pictureURL string, units int) (*OrderItem, error) {
	item, err := newOrderItem(productID, productName, unitPrice, discount, pictureURL, units)
	if err != nil {
		return nil, err
	}
	o.items = append(o.items, item)
	return item, nil
}

// Total = Σ(unitPrice*units − discount); для пустого заказа 0.
func (o *Order) Total() Money {
	var total Money
	for _, item := range o.items {
		total += item.Total()
	}
	return total
}

// SetBuyerID привязывает заказ к покупателю после его верификации.
func (o *Order) SetBuyerID(id int64) {
	o.buyerID = &id
}

// SetPaymentMethodID фиксирует выбранный способ оплаты.
func (o *Order) SetPaymentMethodID(id int64) {
	o.paymentMethodID = &id
}

// SetPaidStatus переводит заказ pending → paid.
func (o *Order) SetPaidStatus() error {
	return o.transition(OrderStatusPaid, "The payment was performed.")
}

// SetShippedStatus переводит заказ paid → shipped.
func (o *Order) SetShippedStatus() error {
	return o.transition(OrderStatusShipped, "The order was shipped.")
}

// SetCancelledStatus отменяет заказ из любого нетерминального статуса.
func (o *Order) SetCancelledStatus() error {
	return o.transition(OrderStatusCancelled, "The order was cancelled.")
}

func (o *Order) transition(next OrderStatus, description string) error {
	if !o.status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidOrderTransition, o.status.Name(), next.Name())
	}
	prev := o.status
	o.status = next
	o.description = description
	o.raise(OrderStatusChangedEvent{
		OrderID:  o.id,
		From:     prev.Name(),
		To:       next.Name(),
		Occurred: now(),
	})
	return nil
}

// AssignIDs проставляет идентификаторы, выданные хранилищем: заказу и
// позициям в порядке их добавления.
func (o *Order) AssignIDs(orderID int64, itemIDs []int64) error {
	if len(itemIDs) != len(o.items) {
		return fmt.Errorf("assign order ids: got %d item ids for %d items", len(itemIDs), len(o.items))
	}
	o.id = orderID
	for i, item := range o.items {
		item.id = itemIDs[i]
	}
	return nil
}

// Snapshot возвращает копию состояния заказа вместе с позициями.
func (o *Order) Snapshot() OrderSnapshot {
	s := OrderSnapshot{
		ID:              o.id,
		BuyerID:         copyID(o.buyerID),
		PaymentMethodID: copyID(o.paymentMethodID),
		UserID:          o.userID,
		UserName:        o.userName,
		Address:         o.address,
		Card:            o.card,
		Status:          o.status,
		Description:     o.description,
		OrderDate:       o.orderDate,
		Items:           make([]OrderItemSnapshot, 0, len(o.items)),
	}
	for _, item := range o.items {
		s.Items = append(s.Items, item.Snapshot())
	}
	return s
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
