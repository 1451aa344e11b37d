package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

// Store — in-memory хранилище агрегатов для локальной разработки и тестов.
// Хранит снимки, а не живые агрегаты, чтобы изменения вызывающего кода не
// протекали в хранилище до явного сохранения.
type Store struct {
	mu sync.RWMutex

	orders          map[int64]domain.OrderSnapshot
	buyers          map[int64]domain.BuyerSnapshot
	buyerByIdentity map[string]int64

	nextOrderID         int64
	nextItemID          int64
	nextBuyerID         int64
	nextPaymentMethodID int64

	outbox *OutboxRepository
}

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{
		orders:          make(map[int64]domain.OrderSnapshot),
		buyers:          make(map[int64]domain.BuyerSnapshot),
		buyerByIdentity: make(map[string]int64),
		outbox:          NewOutboxRepository(),
	}
}

// Orders возвращает репозиторий заказов поверх хранилища.
func (s *Store) Orders() domain.OrderRepository { return &orderRepository{store: s} }

// Buyers возвращает репозиторий покупателей поверх хранилища.
func (s *Store) Buyers() domain.BuyerRepository { return &buyerRepository{store: s} }

// Queries возвращает read-путь, строящий проекции из агрегатов.
func (s *Store) Queries() domain.OrderQueries { return &orderQueries{store: s} }

// Outbox возвращает outbox, куда репозитории складывают доменные события.
func (s *Store) Outbox() *OutboxRepository { return s.outbox }

func checkContext(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return domain.StoreUnavailable(op, err)
	}
	return nil
}
