package domain

import "time"

// Типы доменных событий, попадающие в outbox.
const (
	EventTypeOrderStarted               = "order.started"
	EventTypeOrderStatusChanged         = "order.status_changed"
	EventTypeBuyerPaymentMethodVerified = "buyer.payment_method_verified"
)

// Типы агрегатов для outbox.
const (
	AggregateTypeOrder = "order"
	AggregateTypeBuyer = "buyer"
)

// DomainEvent — событие, которое агрегат накапливает в памяти до диспетчеризации.
// В сохраняемое состояние агрегата события не входят.
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// OrderStartedEvent поднимается при создании заказа.
type OrderStartedEvent struct {
	UserID          string    `json:"user_id"`
	UserName        string    `json:"user_name"`
	CardTypeID      int       `json:"card_type_id"`
	CardNumber      string    `json:"card_number"`
	CardHolderName  string    `json:"card_holder_name"`
	CardExpiration  time.Time `json:"card_expiration"`
	BuyerID         *int64    `json:"buyer_id,omitempty"`
	PaymentMethodID *int64    `json:"payment_method_id,omitempty"`
	Occurred        time.Time `json:"occurred_at"`
}

func (e OrderStartedEvent) EventType() string     { return EventTypeOrderStarted }
func (e OrderStartedEvent) OccurredAt() time.Time { return e.Occurred }

// OrderStatusChangedEvent поднимается при каждом переходе статуса.
type OrderStatusChangedEvent struct {
	OrderID  int64     `json:"order_id"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Occurred time.Time `json:"occurred_at"`
}

func (e OrderStatusChangedEvent) EventType() string     { return EventTypeOrderStatusChanged }
func (e OrderStatusChangedEvent) OccurredAt() time.Time { return e.Occurred }

// BuyerPaymentMethodVerifiedEvent поднимается, когда покупатель подтвердил
// (или переиспользовал) способ оплаты для заказа.
type BuyerPaymentMethodVerifiedEvent struct {
	BuyerIdentity   string    `json:"buyer_identity"`
	PaymentMethodID int64     `json:"payment_method_id"`
	CardTypeID      int       `json:"card_type_id"`
	OrderID         int64     `json:"order_id"`
	Reused          bool      `json:"reused"`
	Occurred        time.Time `json:"occurred_at"`

	method *PaymentMethod
}

func (e BuyerPaymentMethodVerifiedEvent) EventType() string {
	return EventTypeBuyerPaymentMethodVerified
}
func (e BuyerPaymentMethodVerifiedEvent) OccurredAt() time.Time { return e.Occurred }

// events — append-only журнал доменных событий агрегата.
type events struct {
	pending []DomainEvent
}

func (e *events) raise(ev DomainEvent) {
	e.pending = append(e.pending, ev)
}

// DomainEvents возвращает копию накопленных событий.
func (e *events) DomainEvents() []DomainEvent {
	out := make([]DomainEvent, len(e.pending))
	copy(out, e.pending)
	return out
}

// ClearDomainEvents очищает журнал после диспетчеризации.
func (e *events) ClearDomainEvents() {
	e.pending = nil
}
