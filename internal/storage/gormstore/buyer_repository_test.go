package gormstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

func TestBuyerRepository_FailedAddKeepsBuyerUnsaved(t *testing.T) {
	store := openSQLite(t)
	ctx := context.Background()

	order := newOrder(t)
	require.NoError(t, store.Orders().Add(ctx, order))
	require.NoError(t, store.DB().Migrator().DropTable("outbox_messages"))

	buyer, err := domain.NewBuyer("identity-1", "alice")
	require.NoError(t, err)
	_, err = buyer.VerifyOrAddPaymentMethod(domain.CardTypeVisa, "main", "4012888888881881", "123", "ALICE",
		time.Now().UTC().AddDate(1, 0, 0), order.ID())
	require.NoError(t, err)

	err = store.Buyers().Add(ctx, buyer)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Zero(t, buyer.ID())
	assert.Zero(t, buyer.PaymentMethods()[0].ID())

	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Buyers().Add(ctx, buyer))
	assert.NotZero(t, buyer.ID())
	assert.NotZero(t, buyer.PaymentMethods()[0].ID())

	loaded, err := store.Buyers().FindByIdentity(ctx, "identity-1")
	require.NoError(t, err)
	require.Len(t, loaded.PaymentMethods(), 1)
	assert.Equal(t, buyer.PaymentMethods()[0].ID(), loaded.PaymentMethods()[0].ID())
}
