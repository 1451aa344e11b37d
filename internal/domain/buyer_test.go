package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

func TestNewBuyer_Validation(t *testing.T) {
	cases := []struct {
		name     string
		identity string
		buyer    string
		wantErr  bool
	}{
		{name: "valid", identity: "id-1", buyer: "Alice"},
		{name: "no identity", identity: "", buyer: "Alice", wantErr: true},
		{name: "no name", identity: "id-1", buyer: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := domain.NewBuyer(tc.identity, tc.buyer)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrInvalidBuyer) {
					t.Fatalf("expected ErrInvalidBuyer, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if b.Identity() != tc.identity || b.Name() != tc.buyer {
				t.Fatalf("unexpected buyer: %+v", b.Snapshot())
			}
		})
	}
}

func TestVerifyOrAddPaymentMethod_DeduplicatesEqualCards(t *testing.T) {
	buyer := newBuyer(t)
	expiration := time.Now().AddDate(1, 0, 0)

	first, err := buyer.VerifyOrAddPaymentMethod(domain.CardTypeVisa, "main", "4111", "123", "Alice", expiration, 10)
	if err != nil {
		t.Fatalf("first verify: %v", err)
	}
	second, err := buyer.VerifyOrAddPaymentMethod(domain.CardTypeVisa, "other alias", "4111", "999", "Alice", expiration, 11)
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}

	if first != second {
		t.Fatal("equal card must reuse the existing payment method")
	}
	if got := len(buyer.PaymentMethods()); got != 1 {
		t.Fatalf("expected 1 payment method, got %d", got)
	}
	ids := first.OrderIDs()
	if len(ids) != 2 || ids[0] != 10 || ids[1] != 11 {
		t.Fatalf("expected both order ids recorded, got %v", ids)
	}
	if first.Alias() != "main" || first.SecurityNumber() != "123" {
		t.Fatal("reuse must not overwrite the stored instrument")
	}
}

func TestVerifyOrAddPaymentMethod_DistinctCards(t *testing.T) {
	buyer := newBuyer(t)
	expiration := time.Now().AddDate(1, 0, 0)

	cases := []struct {
		cardType   int
		number     string
		expiration time.Time
	}{
		{cardType: domain.CardTypeVisa, number: "4111", expiration: expiration},
		{cardType: domain.CardTypeAmex, number: "4111", expiration: expiration},
		{cardType: domain.CardTypeVisa, number: "4222", expiration: expiration},
		{cardType: domain.CardTypeVisa, number: "4111", expiration: expiration.AddDate(0, 1, 0)},
	}
	for i, tc := range cases {
		if _, err := buyer.VerifyOrAddPaymentMethod(tc.cardType, "alias", tc.number, "123", "Alice", tc.expiration, int64(i+1)); err != nil {
			t.Fatalf("verify %d: %v", i, err)
		}
	}

	if got := len(buyer.PaymentMethods()); got != len(cases) {
		t.Fatalf("expected %d payment methods, got %d", len(cases), got)
	}
}

func TestVerifyOrAddPaymentMethod_SameOrderRecordedOnce(t *testing.T) {
	buyer := newBuyer(t)
	expiration := time.Now().AddDate(1, 0, 0)

	for i := 0; i < 2; i++ {
		if _, err := buyer.VerifyOrAddPaymentMethod(domain.CardTypeVisa, "a", "4111", "123", "Alice", expiration, 7); err != nil {
			t.Fatalf("verify: %v", err)
		}
	}
	if ids := buyer.PaymentMethods()[0].OrderIDs(); len(ids) != 1 {
		t.Fatalf("expected order id recorded once, got %v", ids)
	}
}

func TestVerifyOrAddPaymentMethod_ExpiredCard(t *testing.T) {
	buyer := newBuyer(t)

	_, err := buyer.VerifyOrAddPaymentMethod(domain.CardTypeVisa, "old", "4111", "123", "Alice", time.Now().AddDate(0, 0, -2), 1)
	if !errors.Is(err, domain.ErrExpiredCard) {
		t.Fatalf("expected ErrExpiredCard, got %v", err)
	}
	if len(buyer.PaymentMethods()) != 0 {
		t.Fatal("expired card must not be added")
	}
	if len(buyer.DomainEvents()) != 0 {
		t.Fatal("failed verification must not raise events")
	}
}

func TestVerifyOrAddPaymentMethod_ExpiringTodayIsAccepted(t *testing.T) {
	buyer := newBuyer(t)
	y, m, d := time.Now().UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	if _, err := buyer.VerifyOrAddPaymentMethod(domain.CardTypeVisa, "a", "4111", "123", "Alice", today, 1); err != nil {
		t.Fatalf("card expiring today must be accepted: %v", err)
	}
}

func TestVerifyOrAddPaymentMethod_Events(t *testing.T) {
	buyer := newBuyer(t)
	expiration := time.Now().AddDate(1, 0, 0)

	if _, err := buyer.VerifyOrAddPaymentMethod(domain.CardTypeVisa, "a", "4111", "123", "Alice", expiration, 1); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, err := buyer.VerifyOrAddPaymentMethod(domain.CardTypeVisa, "a", "4111", "123", "Alice", expiration, 2); err != nil {
		t.Fatalf("verify: %v", err)
	}

	events := buyer.DomainEvents()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	first := events[0].(domain.BuyerPaymentMethodVerifiedEvent)
	second := events[1].(domain.BuyerPaymentMethodVerifiedEvent)
	if first.Reused || !second.Reused {
		t.Fatalf("unexpected reuse flags: %v %v", first.Reused, second.Reused)
	}
	if first.OrderID != 1 || second.OrderID != 2 || first.BuyerIdentity != "identity-1" {
		t.Fatalf("unexpected event payloads: %+v %+v", first, second)
	}
}

func TestRestoreBuyer_KeepsDedupState(t *testing.T) {
	buyer := newBuyer(t)
	expiration := time.Now().AddDate(1, 0, 0)
	if _, err := buyer.VerifyOrAddPaymentMethod(domain.CardTypeVisa, "a", "4111", "123", "Alice", expiration, 1); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := buyer.AssignIDs(3, []int64{30}); err != nil {
		t.Fatalf("assign ids: %v", err)
	}

	restored := domain.RestoreBuyer(buyer.Snapshot())
	pm, err := restored.VerifyOrAddPaymentMethod(domain.CardTypeVisa, "a", "4111", "123", "Alice", expiration, 2)
	if err != nil {
		t.Fatalf("verify restored: %v", err)
	}
	if pm.ID() != 30 || len(restored.PaymentMethods()) != 1 {
		t.Fatalf("restored buyer must reuse payment method 30, got id=%d count=%d", pm.ID(), len(restored.PaymentMethods()))
	}
}

func newBuyer(t *testing.T) *domain.Buyer {
	t.Helper()
	buyer, err := domain.NewBuyer("identity-1", "Alice")
	if err != nil {
		t.Fatalf("new buyer: %v", err)
	}
	return buyer
}
