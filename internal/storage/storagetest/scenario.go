// Package storagetest содержит общий набор проверок для реализаций
// domain.OrderQueries. Каждый read-путь прогоняется на одних и тех же данных,
// а результаты путей сравниваются между собой поэлементно.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

// Identities покупателей из сценария.
const (
	IdentityAlice   = "3f1c9c0e-7a54-4c1b-9d0e-6b2f0c1a0001"
	IdentityBob     = "3f1c9c0e-7a54-4c1b-9d0e-6b2f0c1a0002"
	IdentityCarol   = "3f1c9c0e-7a54-4c1b-9d0e-6b2f0c1a0003"
	IdentityUnknown = "00000000-0000-0000-0000-000000000000"
)

// Scenario — сохранённые агрегаты с уже назначенными идентификаторами.
type Scenario struct {
	Buyers map[string]*domain.Buyer
	Orders []*domain.Order
	// OrdersByIdentity — ожидаемые заказы покупателя в порядке id.
	OrdersByIdentity map[string][]*domain.Order
}

// SeedScenario сохраняет фиксированный набор покупателей и заказов через
// репозитории: Alice с тремя заказами в разных статусах, Bob с одним
// отгруженным, Carol без заказов и гостевой заказ без покупателя.
func SeedScenario(ctx context.Context, t testing.TB, orders domain.OrderRepository, buyers domain.BuyerRepository) Scenario {
	t.Helper()

	sc := Scenario{
		Buyers:           make(map[string]*domain.Buyer),
		OrdersByIdentity: make(map[string][]*domain.Order),
	}
	expiration := time.Now().UTC().AddDate(2, 0, 0)

	for identity, name := range map[string]string{
		IdentityAlice: "Alice Liddell",
		IdentityBob:   "Bob Builder",
		IdentityCarol: "Carol Danvers",
	} {
		b, err := domain.NewBuyer(identity, name)
		require.NoError(t, err)
		require.NoError(t, buyers.Add(ctx, b))
		sc.Buyers[identity] = b
	}

	type line struct {
		productID int64
		name      string
		price     domain.Money
		discount  domain.Money
		units     int
	}
	plans := []struct {
		identity string
		card     string
		lines    []line
		advance  []func(o *domain.Order) error
	}{
		{
			identity: IdentityAlice,
			card:     "************4242",
			lines: []line{
				{productID: 1, name: ".NET Bot Black Hoodie", price: 1950, discount: 0, units: 2},
				{productID: 2, name: ".NET Black & White Mug", price: 850, discount: 100, units: 1},
			},
		},
		{
			identity: IdentityAlice,
			card:     "************4242",
			lines: []line{
				{productID: 3, name: "Prism White T-Shirt", price: 1200, discount: 30, units: 3},
			},
			advance: []func(o *domain.Order) error{(*domain.Order).SetPaidStatus},
		},
		{
			identity: IdentityBob,
			card:     "************1881",
			lines: []line{
				{productID: 4, name: "Roslyn Red Sheet", price: 850, discount: 0, units: 1},
				{productID: 1, name: ".NET Bot Black Hoodie", price: 1950, discount: 1950, units: 1},
				{productID: 5, name: "Cup<T> White Mug", price: 1250, discount: 25, units: 4},
			},
			advance: []func(o *domain.Order) error{(*domain.Order).SetPaidStatus, (*domain.Order).SetShippedStatus},
		},
		{
			identity: IdentityAlice,
			card:     "************0005",
			advance:  []func(o *domain.Order) error{(*domain.Order).SetCancelledStatus},
		},
		{
			identity: "",
			card:     "************9999",
			lines: []line{
				{productID: 6, name: "Kudu Purple Hoodie", price: 850, discount: 0, units: 1},
			},
		},
	}

	for i, plan := range plans {
		order, err := domain.NewOrder(domain.NewOrderParams{
			UserID:   "user-" + plan.identity,
			UserName: "User " + plan.identity,
			Address: domain.Address{
				Street:  "15703 NE 61st Ct",
				City:    "Redmond",
				State:   "WA",
				Country: "U.S.",
				ZipCode: "98052",
			},
			Card: domain.CardSnapshot{
				CardTypeID:     domain.CardTypeVisa,
				CardNumber:     plan.card,
				SecurityNumber: "535",
				HolderName:     "Holder " + plan.identity,
				Expiration:     expiration,
			},
		})
		require.NoError(t, err)
		for _, l := range plan.lines {
			_, err := order.AddOrderItem(l.productID, l.name, l.price, l.discount, "https://pics/"+l.name+".png", l.units)
			require.NoError(t, err)
		}

		buyer := sc.Buyers[plan.identity]
		if buyer != nil {
			order.SetBuyerID(buyer.ID())
		}
		require.NoError(t, orders.Add(ctx, order), "add order %d", i)

		if buyer != nil {
			pm, err := buyer.VerifyOrAddPaymentMethod(domain.CardTypeVisa, "card", plan.card, "535", buyer.Name(), expiration, order.ID())
			require.NoError(t, err)
			require.NoError(t, buyers.Update(ctx, buyer))
			order.SetPaymentMethodID(pm.ID())
		}
		for _, step := range plan.advance {
			require.NoError(t, step(order))
		}
		require.NoError(t, orders.Update(ctx, order), "update order %d", i)

		sc.Orders = append(sc.Orders, order)
		if plan.identity != "" {
			sc.OrdersByIdentity[plan.identity] = append(sc.OrdersByIdentity[plan.identity], order)
		}
	}

	return sc
}
