// Package seed наполняет хранилище детерминированным набором покупателей и
// заказов для сверки read-путей и нагрузочных прогонов.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

const (
	DefaultBuyers = 100
	DefaultOrders = 1000
	DefaultSeed   = 42

	maxPaymentMethods = 3
	maxOrderItems     = 5
	maxUnits          = 10
	maxProductID      = 100
)

var (
	minUnitPrice = decimal.RequireFromString("0.50")
	maxUnitPrice = decimal.RequireFromString("100.00")
	maxDiscount  = decimal.RequireFromString("0.30")

	productNames = []string{
		".NET Bot Black Hoodie", ".NET Black & White Mug", "Prism White T-Shirt",
		".NET Foundation T-shirt", "Roslyn Red Sheet", ".NET Blue Hoodie",
		"Roslyn Red T-Shirt", "Kudu Purple Hoodie", "Cup<T> White Mug",
		".NET Foundation Sheet", "Cup<T> Sheet", "Prism White TShirt",
	}
	cities = []string{"Redmond", "Seattle", "Moscow", "Berlin", "Lisbon"}
)

// Options задаёт объём и зерно генерации.
type Options struct {
	Buyers int
	Orders int
	Seed   int64
}

func (o Options) withDefaults() Options {
	if o.Buyers <= 0 {
		o.Buyers = DefaultBuyers
	}
	if o.Orders <= 0 {
		o.Orders = DefaultOrders
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	return o
}

// Result — идентификаторы созданных записей.
type Result struct {
	BuyerIdentities []string
	OrderIDs        []int64
}

type card struct {
	typeID     int
	number     string
	security   string
	expiration time.Time
}

// Generator создаёт агрегаты и сохраняет их через репозитории.
type Generator struct {
	orders domain.OrderRepository
	buyers domain.BuyerRepository
	logger *log.Entry
}

// NewGenerator создаёт генератор поверх репозиториев.
func NewGenerator(orders domain.OrderRepository, buyers domain.BuyerRepository) *Generator {
	return &Generator{
		orders: orders,
		buyers: buyers,
		logger: log.WithField("component", "seed"),
	}
}

// Run создаёт opts.Buyers покупателей и opts.Orders заказов. При одинаковом
// зерне набор агрегатов совпадает с точностью до идентификаторов хранилища.
func (g *Generator) Run(ctx context.Context, opts Options) (Result, error) {
	opts = opts.withDefaults()
	rng := rand.New(rand.NewSource(opts.Seed))
	today := time.Now().UTC().Truncate(24 * time.Hour)

	buyers := make([]*domain.Buyer, 0, opts.Buyers)
	cards := make([][]card, 0, opts.Buyers)
	result := Result{
		BuyerIdentities: make([]string, 0, opts.Buyers),
		OrderIDs:        make([]int64, 0, opts.Orders),
	}

	for i := 0; i < opts.Buyers; i++ {
		identity, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			return result, fmt.Errorf("generate identity: %w", err)
		}
		buyer, err := domain.NewBuyer(identity.String(), fmt.Sprintf("Buyer %03d", i+1))
		if err != nil {
			return result, err
		}
		if err := g.buyers.Add(ctx, buyer); err != nil {
			return result, fmt.Errorf("add buyer %d: %w", i+1, err)
		}
		buyers = append(buyers, buyer)
		result.BuyerIdentities = append(result.BuyerIdentities, buyer.Identity())

		n := 1 + rng.Intn(maxPaymentMethods)
		own := make([]card, 0, n)
		for j := 0; j < n; j++ {
			own = append(own, card{
				typeID:     domain.CardTypeAmex + rng.Intn(3),
				number:     fmt.Sprintf("%016d", rng.Int63n(1e16)),
				security:   fmt.Sprintf("%03d", 100+rng.Intn(900)),
				expiration: today.AddDate(1+rng.Intn(4), rng.Intn(12), 0),
			})
		}
		cards = append(cards, own)
	}

	for i := 0; i < opts.Orders; i++ {
		idx := rng.Intn(len(buyers))
		id, err := g.placeOrder(ctx, rng, buyers[idx], cards[idx][rng.Intn(len(cards[idx]))])
		if err != nil {
			return result, fmt.Errorf("order %d: %w", i+1, err)
		}
		result.OrderIDs = append(result.OrderIDs, id)
	}

	g.logger.WithFields(log.Fields{
		"buyers": len(result.BuyerIdentities),
		"orders": len(result.OrderIDs),
		"seed":   opts.Seed,
	}).Info("seed completed")
	return result, nil
}

func (g *Generator) placeOrder(ctx context.Context, rng *rand.Rand, buyer *domain.Buyer, c card) (int64, error) {
	order, err := domain.NewOrder(domain.NewOrderParams{
		UserID:   buyer.Identity(),
		UserName: buyer.Name(),
		Address: domain.Address{
			Street:  fmt.Sprintf("%d Main st", 1+rng.Intn(999)),
			City:    cities[rng.Intn(len(cities))],
			State:   "WA",
			Country: "U.S.",
			ZipCode: fmt.Sprintf("%05d", rng.Intn(100000)),
		},
		Card: domain.CardSnapshot{
			CardTypeID:     c.typeID,
			CardNumber:     c.number,
			SecurityNumber: c.security,
			HolderName:     buyer.Name(),
			Expiration:     c.expiration,
		},
	})
	if err != nil {
		return 0, err
	}

	items := 1 + rng.Intn(maxOrderItems)
	for j := 0; j < items; j++ {
		name := productNames[rng.Intn(len(productNames))]
		if _, err := order.AddOrderItem(
			int64(1+rng.Intn(maxProductID)),
			name,
			randomMoney(rng, minUnitPrice, maxUnitPrice),
			randomMoney(rng, decimal.Zero, maxDiscount),
			fmt.Sprintf("https://pics.example/%d.png", 1+rng.Intn(maxProductID)),
			1+rng.Intn(maxUnits),
		); err != nil {
			return 0, err
		}
	}

	buyerID := buyer.ID()
	order.SetBuyerID(buyerID)
	if err := g.orders.Add(ctx, order); err != nil {
		return 0, err
	}

	pm, err := buyer.VerifyOrAddPaymentMethod(c.typeID, "card", c.number, c.security, buyer.Name(), c.expiration, order.ID())
	if err != nil {
		return 0, err
	}
	if err := g.buyers.Update(ctx, buyer); err != nil {
		return 0, err
	}
	order.SetPaymentMethodID(pm.ID())

	if err := advance(rng, order); err != nil {
		return 0, err
	}
	if err := g.orders.Update(ctx, order); err != nil {
		return 0, err
	}
	return order.ID(), nil
}

// advance переводит заказ в случайный достижимый статус.
func advance(rng *rand.Rand, order *domain.Order) error {
	switch rng.Intn(4) {
	case 1:
		return order.SetPaidStatus()
	case 2:
		if err := order.SetPaidStatus(); err != nil {
			return err
		}
		return order.SetShippedStatus()
	case 3:
		return order.SetCancelledStatus()
	default:
		return nil
	}
}

func randomMoney(rng *rand.Rand, lo, hi decimal.Decimal) domain.Money {
	span := hi.Sub(lo)
	return domain.MoneyFromDecimal(lo.Add(span.Mul(decimal.NewFromFloat(rng.Float64()))))
}
