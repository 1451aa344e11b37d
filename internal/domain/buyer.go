package domain

import (
	"fmt"
	"time"
)

// Buyer — агрегат покупателя, связанный с внешней identity.
type Buyer struct {
	events

	id             int64
	identity       string
	name           string
	paymentMethods []*PaymentMethod
}

// BuyerSnapshot — плоское представление покупателя для хранилищ.
type BuyerSnapshot struct {
	ID             int64
	Identity       string
	Name           string
	PaymentMethods []PaymentMethodSnapshot
}

// NewBuyer создаёт покупателя. identity после создания не меняется.
func NewBuyer(identity, name string) (*Buyer, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: identity is required", ErrInvalidBuyer)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidBuyer)
	}
	return &Buyer{
		identity:       identity,
		name:           name,
		paymentMethods: make([]*PaymentMethod, 0),
	}, nil
}

// RestoreBuyer восстанавливает агрегат из хранилища без валидации и событий.
func RestoreBuyer(s BuyerSnapshot) *Buyer {
	b := &Buyer{
		id:             s.ID,
		identity:       s.Identity,
		name:           s.Name,
		paymentMethods: make([]*PaymentMethod, 0, len(s.PaymentMethods)),
	}
	for _, pm := range s.PaymentMethods {
		b.paymentMethods = append(b.paymentMethods, restorePaymentMethod(pm))
	}
	return b
}

func (b *Buyer) ID() int64        { return b.id }
func (b *Buyer) Identity() string { return b.identity }
func (b *Buyer) Name() string     { return b.name }

// PaymentMethods возвращает способы оплаты в порядке добавления.
func (b *Buyer) PaymentMethods() []*PaymentMethod {
	out := make([]*PaymentMethod, len(b.paymentMethods))
	copy(out, b.paymentMethods)
	return out
}

// VerifyOrAddPaymentMethod ищет способ оплаты, совпадающий по
// (cardTypeID, cardNumber, expiration). Найденный переиспользуется и получает
// orderID как ещё одно использование; иначе создаётся новый, если карта не
// просрочена. Коллекция только растёт.
func (b *Buyer) VerifyOrAddPaymentMethod(
	cardTypeID int,
	alias, cardNumber, securityNumber, cardHolderName string,
	expiration time.Time,
	orderID int64,
) (*PaymentMethod, error) {
	at := now()

	for _, existing := range b.paymentMethods {
		if existing.IsEqualTo(cardTypeID, cardNumber, expiration) {
			existing.recordOrder(orderID)
			b.raiseVerified(existing, orderID, true, at)
			return existing, nil
		}
	}

	pm, err := newPaymentMethod(cardTypeID, alias, cardNumber, securityNumber, cardHolderName, expiration, at)
	if err != nil {
		return nil, err
	}
	pm.recordOrder(orderID)
	b.paymentMethods = append(b.paymentMethods, pm)
	b.raiseVerified(pm, orderID, false, at)
	return pm, nil
}

func (b *Buyer) raiseVerified(pm *PaymentMethod, orderID int64, reused bool, at time.Time) {
	b.raise(BuyerPaymentMethodVerifiedEvent{
		BuyerIdentity:   b.identity,
		PaymentMethodID: pm.id,
		CardTypeID:      pm.cardTypeID,
		OrderID:         orderID,
		Reused:          reused,
		Occurred:        at,
		method:          pm,
	})
}

// AssignIDs проставляет идентификаторы, выданные хранилищем: покупателю и
// способам оплаты в порядке их следования.
func (b *Buyer) AssignIDs(buyerID int64, paymentMethodIDs []int64) error {
	if len(paymentMethodIDs) != len(b.paymentMethods) {
		return fmt.Errorf("assign buyer ids: got %d payment method ids for %d payment methods", len(paymentMethodIDs), len(b.paymentMethods))
	}
	b.id = buyerID
	for i, pm := range b.paymentMethods {
		pm.id = paymentMethodIDs[i]
	}
	return nil
}

// Snapshot возвращает копию состояния покупателя.
func (b *Buyer) Snapshot() BuyerSnapshot {
	s := BuyerSnapshot{
		ID:             b.id,
		Identity:       b.identity,
		Name:           b.name,
		PaymentMethods: make([]PaymentMethodSnapshot, 0, len(b.paymentMethods)),
	}
	for _, pm := range b.paymentMethods {
		s.PaymentMethods = append(s.PaymentMethods, pm.Snapshot())
	}
	return s
}
