package domain

import (
	"fmt"
	"time"
)

// PaymentMethod — способ оплаты покупателя. Принадлежит агрегату Buyer.
type PaymentMethod struct {
	id             int64
	cardTypeID     int
	alias          string
	cardNumber     string
	securityNumber string
	cardHolderName string
	expiration     time.Time
	orderIDs       []int64
}

// PaymentMethodSnapshot — плоское представление способа оплаты для хранилищ.
type PaymentMethodSnapshot struct {
	ID             int64
	CardTypeID     int
	Alias          string
	CardNumber     string
	SecurityNumber string
	CardHolderName string
	Expiration     time.Time
	OrderIDs       []int64
}

func newPaymentMethod(cardTypeID int, alias, cardNumber, securityNumber, cardHolderName string, expiration, at time.Time) (*PaymentMethod, error) {
	if startOfDay(expiration).Before(startOfDay(at)) {
		return nil, fmt.Errorf("%w: expiration %s", ErrExpiredCard, expiration.Format(time.DateOnly))
	}
	return &PaymentMethod{
		cardTypeID:     cardTypeID,
		alias:          alias,
		cardNumber:     cardNumber,
		securityNumber: securityNumber,
		cardHolderName: cardHolderName,
		expiration:     expiration.UTC(),
		orderIDs:       make([]int64, 0, 1),
	}, nil
}

func (p *PaymentMethod) ID() int64              { return p.id }
func (p *PaymentMethod) CardTypeID() int        { return p.cardTypeID }
func (p *PaymentMethod) Alias() string          { return p.alias }
func (p *PaymentMethod) CardNumber() string     { return p.cardNumber }
func (p *PaymentMethod) SecurityNumber() string { return p.securityNumber }
func (p *PaymentMethod) CardHolderName() string { return p.cardHolderName }
func (p *PaymentMethod) Expiration() time.Time  { return p.expiration }

// OrderIDs возвращает заказы, оплаченные этим способом, в порядке использования.
func (p *PaymentMethod) OrderIDs() []int64 {
	out := make([]int64, len(p.orderIDs))
	copy(out, p.orderIDs)
	return out
}

// IsEqualTo — правило дедупликации: совпадение типа карты, номера и срока
// действия (с точностью до дня, в UTC).
func (p *PaymentMethod) IsEqualTo(cardTypeID int, cardNumber string, expiration time.Time) bool {
	return p.cardTypeID == cardTypeID &&
		p.cardNumber == cardNumber &&
		sameDay(p.expiration, expiration)
}

func (p *PaymentMethod) recordOrder(orderID int64) {
	for _, id := range p.orderIDs {
		if id == orderID {
			return
		}
	}
	p.orderIDs = append(p.orderIDs, orderID)
}

// Snapshot возвращает копию состояния способа оплаты.
func (p *PaymentMethod) Snapshot() PaymentMethodSnapshot {
	return PaymentMethodSnapshot{
		ID:             p.id,
		CardTypeID:     p.cardTypeID,
		Alias:          p.alias,
		CardNumber:     p.cardNumber,
		SecurityNumber: p.securityNumber,
		CardHolderName: p.cardHolderName,
		Expiration:     p.expiration,
		OrderIDs:       p.OrderIDs(),
	}
}

func restorePaymentMethod(s PaymentMethodSnapshot) *PaymentMethod {
	orderIDs := make([]int64, len(s.OrderIDs))
	copy(orderIDs, s.OrderIDs)
	return &PaymentMethod{
		id:             s.ID,
		cardTypeID:     s.CardTypeID,
		alias:          s.Alias,
		cardNumber:     s.CardNumber,
		securityNumber: s.SecurityNumber,
		cardHolderName: s.CardHolderName,
		expiration:     s.Expiration,
		orderIDs:       orderIDs,
	}
}

func sameDay(a, b time.Time) bool {
	return startOfDay(a).Equal(startOfDay(b))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
