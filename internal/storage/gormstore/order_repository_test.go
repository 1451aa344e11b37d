package gormstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

func newOrder(t *testing.T) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder(domain.NewOrderParams{
		UserID:   "user-1",
		UserName: "alice",
		Address:  domain.Address{Street: "Main st", City: "Moscow", Country: "RU", ZipCode: "101000"},
		Card: domain.CardSnapshot{
			CardTypeID: domain.CardTypeMasterCard,
			CardNumber: "5555555555554444",
			HolderName: "ALICE",
			Expiration: time.Now().UTC().AddDate(1, 0, 0),
		},
	})
	require.NoError(t, err)
	_, err = order.AddOrderItem(7, "Mug", 500, 50, "mug.png", 2)
	require.NoError(t, err)
	return order
}

func TestOrderRepository_AddWritesOutboxInSameTransaction(t *testing.T) {
	store := openSQLite(t)
	ctx := context.Background()

	order := newOrder(t)
	require.NoError(t, store.Orders().Add(ctx, order))
	require.NotZero(t, order.ID())
	require.NotZero(t, order.OrderItems()[0].ID())
	assert.Empty(t, order.DomainEvents())

	require.NoError(t, order.SetPaidStatus())
	require.NoError(t, store.Orders().Update(ctx, order))

	outbox := store.Outbox()

	msgs, err := outbox.PullPending(10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.EventTypeOrderStarted, msgs[0].EventType)
	assert.Equal(t, domain.EventTypeOrderStatusChanged, msgs[1].EventType)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(msgs[1].Payload, &payload))
	assert.NotEmpty(t, payload)

	require.NoError(t, outbox.MarkSent(msgs[0].ID))
	msgs, err = outbox.PullPending(10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestOrderRepository_UpdateAppendsItems(t *testing.T) {
	store := openSQLite(t)
	ctx := context.Background()

	order := newOrder(t)
	require.NoError(t, store.Orders().Add(ctx, order))
	firstItemID := order.OrderItems()[0].ID()

	_, err := order.AddOrderItem(8, "Hoodie", 1950, 0, "", 1)
	require.NoError(t, err)
	require.NoError(t, store.Orders().Update(ctx, order))

	loaded, err := store.Orders().Get(ctx, order.ID())
	require.NoError(t, err)
	items := loaded.OrderItems()
	require.Len(t, items, 2)
	assert.Equal(t, firstItemID, items[0].ID())
	assert.Equal(t, "Hoodie", items[1].ProductName())
	assert.Equal(t, domain.Money(950+1950), loaded.Total())
}

func TestOrderRepository_NotFound(t *testing.T) {
	store := openSQLite(t)
	ctx := context.Background()

	_, err := store.Orders().Get(ctx, 42)
	assert.True(t, errors.Is(err, domain.ErrOrderNotFound), "%v", err)

	err = store.Orders().Update(ctx, newOrder(t))
	assert.True(t, errors.Is(err, domain.ErrOrderNotFound), "%v", err)
}

func TestOrderRepository_CanceledContext(t *testing.T) {
	store := openSQLite(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Orders().Add(ctx, newOrder(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable), "%v", err)
	assert.True(t, errors.Is(err, context.Canceled), "%v", err)
}

func TestOrderRepository_FailedAddKeepsOrderUnsaved(t *testing.T) {
	store := openSQLite(t)
	ctx := context.Background()
	require.NoError(t, store.DB().Migrator().DropTable("outbox_messages"))

	order := newOrder(t)
	err := store.Orders().Add(ctx, order)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Zero(t, order.ID())
	assert.Zero(t, order.OrderItems()[0].ID())
	assert.NotEmpty(t, order.DomainEvents())

	var count int64
	require.NoError(t, store.DB().Table("orders").Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Orders().Add(ctx, order))
	assert.NotZero(t, order.ID())

	msgs, err := store.Outbox().PullPending(10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, strconv.FormatInt(order.ID(), 10), msgs[0].AggregateID)
}
