package domain

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// NewOutboxMessage сериализует доменное событие в сообщение outbox.
func NewOutboxMessage(aggregateType string, aggregateID int64, ev DomainEvent) (OutboxMessage, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal %s event: %w", ev.EventType(), err)
	}
	return OutboxMessage{
		ID:            uuid.NewString(),
		AggregateType: aggregateType,
		AggregateID:   strconv.FormatInt(aggregateID, 10),
		EventType:     ev.EventType(),
		Payload:       payload,
	}, nil
}

// OrderOutboxMessages переводит накопленные события заказа в сообщения outbox.
// Идентификатор заказа в событиях статуса проставляется здесь: до первого
// сохранения он ещё не известен.
func OrderOutboxMessages(o *Order) ([]OutboxMessage, error) {
	msgs := make([]OutboxMessage, 0, len(o.pending))
	for _, ev := range o.pending {
		if changed, ok := ev.(OrderStatusChangedEvent); ok {
			changed.OrderID = o.id
			ev = changed
		}
		msg, err := NewOutboxMessage(AggregateTypeOrder, o.id, ev)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// BuyerOutboxMessages переводит накопленные события покупателя в сообщения outbox.
// Новые способы оплаты получают id только при сохранении, поэтому id берётся
// из самого способа оплаты, а не из момента события.
func BuyerOutboxMessages(b *Buyer) ([]OutboxMessage, error) {
	msgs := make([]OutboxMessage, 0, len(b.pending))
	for _, ev := range b.pending {
		if verified, ok := ev.(BuyerPaymentMethodVerifiedEvent); ok && verified.method != nil {
			verified.PaymentMethodID = verified.method.id
			ev = verified
		}
		msg, err := NewOutboxMessage(AggregateTypeBuyer, b.id, ev)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
