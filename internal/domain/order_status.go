package domain

// OrderStatus описывает жизненный цикл заказа. Значения совпадают с
// идентификаторами в справочнике order_status.
type OrderStatus int

const (
	// OrderStatusPending — заказ создан и ждёт оплаты.
	OrderStatusPending OrderStatus = 1
	// OrderStatusPaid — оплата подтверждена.
	OrderStatusPaid OrderStatus = 2
	// OrderStatusShipped — заказ отгружен (терминальный статус).
	OrderStatusShipped OrderStatus = 3
	// OrderStatusCancelled — заказ отменён (терминальный статус).
	OrderStatusCancelled OrderStatus = 4
)

var orderStatusNames = map[OrderStatus]string{
	OrderStatusPending:   "pending",
	OrderStatusPaid:      "paid",
	OrderStatusShipped:   "shipped",
	OrderStatusCancelled: "cancelled",
}

// OrderStatuses возвращает все статусы в порядке id (справочник для хранилищ).
func OrderStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusCancelled}
}

// Name возвращает имя статуса, которое попадает в проекции.
func (s OrderStatus) Name() string {
	if name, ok := orderStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s OrderStatus) String() string { return s.Name() }

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	_, ok := orderStatusNames[s]
	return ok
}

// IsTerminal сообщает, что из статуса нет переходов.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusShipped || s == OrderStatusCancelled
}

// CanTransitionTo проверяет переход по машине состояний:
// pending → paid | cancelled, paid → shipped | cancelled.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusPaid || next == OrderStatusCancelled
	case OrderStatusPaid:
		return next == OrderStatusShipped || next == OrderStatusCancelled
	default:
		return false
	}
}
