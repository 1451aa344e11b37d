package memory

import (
	"context"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

type buyerRepository struct {
	store *Store
}

// Add сохраняет нового покупателя; identity должна быть уникальной.
func (r *buyerRepository) Add(ctx context.Context, buyer *domain.Buyer) error {
	if err := checkContext(ctx, "add buyer"); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.buyerByIdentity[buyer.Identity()]; exists {
		return domain.ErrDuplicateBuyer
	}
	s.nextBuyerID++
	return s.persistBuyerLocked(s.nextBuyerID, buyer)
}

// Update сохраняет изменения покупателя (новые способы оплаты и их использования).
func (r *buyerRepository) Update(ctx context.Context, buyer *domain.Buyer) error {
	if err := checkContext(ctx, "update buyer"); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.buyers[buyer.ID()]; !ok || buyer.ID() == 0 {
		return domain.ErrBuyerNotFound
	}
	return s.persistBuyerLocked(buyer.ID(), buyer)
}

// FindByIdentity возвращает покупателя по внешней identity.
func (r *buyerRepository) FindByIdentity(ctx context.Context, identity string) (*domain.Buyer, error) {
	if err := checkContext(ctx, "find buyer"); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.buyerByIdentity[identity]
	if !ok {
		return nil, domain.ErrBuyerNotFound
	}
	return domain.RestoreBuyer(s.buyers[id]), nil
}

func (s *Store) persistBuyerLocked(buyerID int64, buyer *domain.Buyer) error {
	methods := buyer.PaymentMethods()
	ids := make([]int64, 0, len(methods))
	for _, pm := range methods {
		id := pm.ID()
		if id == 0 {
			s.nextPaymentMethodID++
			id = s.nextPaymentMethodID
		}
		ids = append(ids, id)
	}
	if err := buyer.AssignIDs(buyerID, ids); err != nil {
		return err
	}

	msgs, err := domain.BuyerOutboxMessages(buyer)
	if err != nil {
		return err
	}
	s.buyers[buyerID] = buyer.Snapshot()
	s.buyerByIdentity[buyer.Identity()] = buyerID
	for _, msg := range msgs {
		s.outbox.Enqueue(msg)
	}
	buyer.ClearDomainEvents()
	return nil
}

var _ domain.BuyerRepository = (*buyerRepository)(nil)
