package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

// orderQueries строит проекции из восстановленных агрегатов.
type orderQueries struct {
	store *Store
}

func (q *orderQueries) GetOrder(ctx context.Context, id int64) (domain.OrderDetail, error) {
	if err := checkContext(ctx, "get order"); err != nil {
		return domain.OrderDetail{}, err
	}
	q.store.mu.RLock()
	defer q.store.mu.RUnlock()

	snapshot, ok := q.store.orders[id]
	if !ok {
		return domain.OrderDetail{}, domain.ErrOrderNotFound
	}
	return domain.NewOrderDetail(domain.RestoreOrder(snapshot)), nil
}

func (q *orderQueries) GetOrdersFromUser(ctx context.Context, buyerIdentity string) ([]domain.OrderSummary, error) {
	if err := checkContext(ctx, "list orders"); err != nil {
		return nil, err
	}
	q.store.mu.RLock()
	defer q.store.mu.RUnlock()

	result := make([]domain.OrderSummary, 0)
	buyerID, ok := q.store.buyerByIdentity[buyerIdentity]
	if !ok {
		return result, nil
	}
	for _, snapshot := range q.store.orders {
		if snapshot.BuyerID == nil || *snapshot.BuyerID != buyerID {
			continue
		}
		result = append(result, domain.NewOrderSummary(domain.RestoreOrder(snapshot)))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].OrderNumber < result[j].OrderNumber
	})
	return result, nil
}

func (q *orderQueries) GetCardTypes(ctx context.Context) ([]domain.CardType, error) {
	if err := checkContext(ctx, "list card types"); err != nil {
		return nil, err
	}
	return domain.SupportedCardTypes(), nil
}

var _ domain.OrderQueries = (*orderQueries)(nil)
