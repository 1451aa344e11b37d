package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

func TestOrderOutboxMessages_UseAssignedID(t *testing.T) {
	order := newOrder(t)
	if err := order.SetPaidStatus(); err != nil {
		t.Fatalf("set paid: %v", err)
	}
	if err := order.AssignIDs(77, nil); err != nil {
		t.Fatalf("assign ids: %v", err)
	}

	msgs, err := domain.OrderOutboxMessages(order)
	if err != nil {
		t.Fatalf("build messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].EventType != domain.EventTypeOrderStarted || msgs[1].EventType != domain.EventTypeOrderStatusChanged {
		t.Fatalf("unexpected event order: %s, %s", msgs[0].EventType, msgs[1].EventType)
	}

	var changed domain.OrderStatusChangedEvent
	if err := json.Unmarshal(msgs[1].Payload, &changed); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if changed.OrderID != 77 || msgs[1].AggregateID != "77" || msgs[1].AggregateType != domain.AggregateTypeOrder {
		t.Fatalf("order id not propagated: %+v %+v", changed, msgs[1])
	}
	if msgs[0].ID == "" || msgs[0].ID == msgs[1].ID {
		t.Fatal("messages need distinct ids")
	}
}

func TestBuyerOutboxMessages_UseStoredPaymentMethodID(t *testing.T) {
	buyer := newBuyer(t)
	if _, err := buyer.VerifyOrAddPaymentMethod(domain.CardTypeVisa, "a", "4111", "123", "Alice", time.Now().AddDate(1, 0, 0), 5); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := buyer.AssignIDs(9, []int64{90}); err != nil {
		t.Fatalf("assign ids: %v", err)
	}

	msgs, err := domain.BuyerOutboxMessages(buyer)
	if err != nil {
		t.Fatalf("build messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}

	var verified domain.BuyerPaymentMethodVerifiedEvent
	if err := json.Unmarshal(msgs[0].Payload, &verified); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if verified.PaymentMethodID != 90 || verified.OrderID != 5 || msgs[0].AggregateID != "9" {
		t.Fatalf("unexpected payload: %+v", verified)
	}
}
