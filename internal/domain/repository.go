package domain

import "context"

// OrderRepository сохраняет агрегат заказа целиком в одной транзакции.
// Реализации назначают идентификаторы заказу и позициям и переносят
// накопленные доменные события в outbox.
type OrderRepository interface {
	// Add сохраняет новый заказ и присваивает ему идентификатор.
	Add(ctx context.Context, order *Order) error
	// Update сохраняет изменения существующего заказа.
	Update(ctx context.Context, order *Order) error
	// Get загружает заказ с позициями или возвращает ErrOrderNotFound.
	Get(ctx context.Context, id int64) (*Order, error)
}

// BuyerRepository сохраняет агрегат покупателя вместе со способами оплаты.
type BuyerRepository interface {
	Add(ctx context.Context, buyer *Buyer) error
	Update(ctx context.Context, buyer *Buyer) error
	// FindByIdentity возвращает покупателя или ErrBuyerNotFound.
	FindByIdentity(ctx context.Context, identity string) (*Buyer, error)
}
