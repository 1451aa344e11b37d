package memory

import (
	"context"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

// orderRepository — in-memory реализация OrderRepository.
type orderRepository struct {
	store *Store
}

// Add сохраняет новый заказ, назначает идентификаторы и переносит события в outbox.
func (r *orderRepository) Add(ctx context.Context, order *domain.Order) error {
	if err := checkContext(ctx, "add order"); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextOrderID++
	return s.persistOrderLocked(s.nextOrderID, order)
}

// Update перезаписывает существующий заказ.
func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	if err := checkContext(ctx, "update order"); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID()]; !ok || order.ID() == 0 {
		return domain.ErrOrderNotFound
	}
	return s.persistOrderLocked(order.ID(), order)
}

// Get возвращает заказ или ErrOrderNotFound.
func (r *orderRepository) Get(ctx context.Context, id int64) (*domain.Order, error) {
	if err := checkContext(ctx, "get order"); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return domain.RestoreOrder(snapshot), nil
}

func (s *Store) persistOrderLocked(orderID int64, order *domain.Order) error {
	items := order.OrderItems()
	itemIDs := make([]int64, 0, len(items))
	for _, item := range items {
		id := item.ID()
		if id == 0 {
			s.nextItemID++
			id = s.nextItemID
		}
		itemIDs = append(itemIDs, id)
	}
	if err := order.AssignIDs(orderID, itemIDs); err != nil {
		return err
	}

	msgs, err := domain.OrderOutboxMessages(order)
	if err != nil {
		return err
	}
	s.orders[orderID] = order.Snapshot()
	for _, msg := range msgs {
		s.outbox.Enqueue(msg)
	}
	order.ClearDomainEvents()
	return nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
