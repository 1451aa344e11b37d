package seed_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
	"github.com/vladislavdragonenkov/ordering/internal/seed"
	"github.com/vladislavdragonenkov/ordering/internal/storage/memory"
)

func runSeed(t *testing.T, opts seed.Options) (*memory.Store, seed.Result) {
	t.Helper()
	store := memory.NewStore()
	res, err := seed.NewGenerator(store.Orders(), store.Buyers()).Run(context.Background(), opts)
	require.NoError(t, err)
	return store, res
}

func TestGenerator_Counts(t *testing.T) {
	store, res := runSeed(t, seed.Options{Buyers: 10, Orders: 50})
	require.Len(t, res.BuyerIdentities, 10)
	require.Len(t, res.OrderIDs, 50)

	ctx := context.Background()
	total := 0
	for _, identity := range res.BuyerIdentities {
		summaries, err := store.Queries().GetOrdersFromUser(ctx, identity)
		require.NoError(t, err)
		total += len(summaries)

		buyer, err := store.Buyers().FindByIdentity(ctx, identity)
		require.NoError(t, err)
		require.LessOrEqual(t, len(buyer.PaymentMethods()), 3)
	}
	require.Equal(t, 50, total)
}

func TestGenerator_OrdersAreValid(t *testing.T) {
	store, res := runSeed(t, seed.Options{Buyers: 5, Orders: 40, Seed: 7})
	ctx := context.Background()

	for _, id := range res.OrderIDs {
		order, err := store.Orders().Get(ctx, id)
		require.NoError(t, err)
		require.True(t, order.Status().Valid())
		require.NotNil(t, order.BuyerID())
		require.NotNil(t, order.PaymentMethodID())

		items := order.OrderItems()
		require.GreaterOrEqual(t, len(items), 1)
		require.LessOrEqual(t, len(items), 5)
		for _, item := range items {
			require.GreaterOrEqual(t, item.UnitPrice(), domain.Money(50))
			require.LessOrEqual(t, item.UnitPrice(), domain.Money(10000))
			require.LessOrEqual(t, item.Discount(), domain.Money(30))
			require.GreaterOrEqual(t, item.Total(), domain.Money(0))
		}
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	opts := seed.Options{Buyers: 8, Orders: 30, Seed: 42}
	first, res1 := runSeed(t, opts)
	second, res2 := runSeed(t, opts)

	require.Equal(t, res1.BuyerIdentities, res2.BuyerIdentities)
	require.Equal(t, res1.OrderIDs, res2.OrderIDs)

	ctx := context.Background()
	for _, id := range res1.OrderIDs {
		a, err := first.Queries().GetOrder(ctx, id)
		require.NoError(t, err)
		b, err := second.Queries().GetOrder(ctx, id)
		require.NoError(t, err)

		a.Date, b.Date = time.Time{}, time.Time{}
		require.Equal(t, a, b, "order %d", id)
	}
}
