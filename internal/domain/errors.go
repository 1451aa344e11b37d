package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuantity — количество единиц в позиции должно быть положительным,
	// а прирост количества неотрицательным.
	ErrInvalidQuantity = errors.New("invalid number of units")
	// ErrInvalidDiscount — скидка отрицательная или превышает сумму позиции.
	ErrInvalidDiscount = errors.New("invalid discount")
	// ErrInvalidOrder — заказ без пользователя.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrInvalidOrderTransition — переход статуса запрещён машиной состояний.
	ErrInvalidOrderTransition = errors.New("invalid order status transition")
	// ErrInvalidBuyer — покупатель без identity или имени.
	ErrInvalidBuyer = errors.New("invalid buyer")
	// ErrExpiredCard — срок действия карты истёк.
	ErrExpiredCard = errors.New("card expired")
	// ErrNotFound — запись отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable — хранилище вернуло ошибку или не ответило вовремя.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = fmt.Errorf("order %w", ErrNotFound)
	// ErrBuyerNotFound возвращается, если покупатель не найден.
	ErrBuyerNotFound = fmt.Errorf("buyer %w", ErrNotFound)
	// ErrDuplicateBuyer — покупатель с такой identity уже существует.
	ErrDuplicateBuyer = errors.New("buyer identity already exists")
	// ErrConcurrentUpdate сигнализирует о конфликте при сохранении агрегата.
	ErrConcurrentUpdate = errors.New("aggregate was modified concurrently")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// StoreUnavailable оборачивает ошибку драйвера так, чтобы сохранились и
// ErrStoreUnavailable, и исходная причина (например, context.DeadlineExceeded).
func StoreUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// IsNotFound проверяет, что ошибка означает отсутствие записи.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation сообщает, является ли ошибка локальной ошибкой валидации агрегата.
func IsValidation(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidDiscount),
		errors.Is(err, ErrInvalidOrder),
		errors.Is(err, ErrInvalidOrderTransition),
		errors.Is(err, ErrInvalidBuyer),
		errors.Is(err, ErrExpiredCard):
		return true
	default:
		return false
	}
}
