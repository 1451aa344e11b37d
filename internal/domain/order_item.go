package domain

import "fmt"

// OrderItem — позиция заказа. Создаётся только через Order.AddOrderItem,
// поля меняются исключительно методами позиции.
type OrderItem struct {
	id          int64
	productID   int64
	productName string
	unitPrice   Money
	discount    Money
	units       int
	pictureURL  string
}

// OrderItemSnapshot — плоское представление позиции для слоёв хранения.
type OrderItemSnapshot struct {
	ID          int64
	ProductID   int64
	ProductName string
	UnitPrice   Money
	Discount    Money
	Units       int
	PictureURL  string
}

func newOrderItem(productID int64, productName string, unitPrice, discount Money, pictureURL string, units int) (*OrderItem, error) {
	if units <= 0 {
		return nil, fmt.Errorf("%w: units=%d", ErrInvalidQuantity, units)
	}
	if unitPrice < 0 {
		return nil, fmt.Errorf("%w: unit price %s is negative", ErrInvalidOrder, unitPrice)
	}
	if productName == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalidOrder)
	}
	if discount < 0 {
		return nil, fmt.Errorf("%w: discount %s is negative", ErrInvalidDiscount, discount)
	}
	if unitPrice.Times(units) < discount {
		return nil, fmt.Errorf("%w: the total of order item is lower than applied discount", ErrInvalidDiscount)
	}

	return &OrderItem{
		productID:   productID,
		productName: productName,
		unitPrice:   unitPrice,
		discount:    discount,
		units:       units,
		pictureURL:  pictureURL,
	}, nil
}

func (i *OrderItem) ID() int64           { return i.id }
func (i *OrderItem) ProductID() int64    { return i.productID }
func (i *OrderItem) ProductName() string { return i.productName }
func (i *OrderItem) UnitPrice() Money    { return i.unitPrice }
func (i *OrderItem) Discount() Money     { return i.discount }
func (i *OrderItem) Units() int          { return i.units }
func (i *OrderItem) PictureURL() string  { return i.pictureURL }

// Total — стоимость позиции с учётом скидки.
func (i *OrderItem) Total() Money {
	return i.unitPrice.Times(i.units) - i.discount
}

// AddUnits увеличивает количество единиц. Инвариант скидки здесь повторно
// не проверяется: рост количества его не нарушает, а скидка валидируется при
// создании и в SetDiscount.
func (i *OrderItem) AddUnits(delta int) error {
	if delta < 0 {
		return fmt.Errorf("%w: delta=%d", ErrInvalidQuantity, delta)
	}
	i.units += delta
	return nil
}

// SetDiscount заменяет скидку. Проверяется только знак: сравнение со
// стоимостью позиции выполняется лишь при создании.
// TODO: проверять discount <= unitPrice*units, когда отпадёт совместимость со старыми данными.
func (i *OrderItem) SetDiscount(discount Money) error {
	if discount < 0 {
		return fmt.Errorf("%w: discount %s is negative", ErrInvalidDiscount, discount)
	}
	i.discount = discount
	return nil
}

// Snapshot возвращает копию состояния позиции.
func (i *OrderItem) Snapshot() OrderItemSnapshot {
	return OrderItemSnapshot{
		ID:          i.id,
		ProductID:   i.productID,
		ProductName: i.productName,
		UnitPrice:   i.unitPrice,
		Discount:    i.discount,
		Units:       i.units,
		PictureURL:  i.pictureURL,
	}
}

func restoreOrderItem(s OrderItemSnapshot) *OrderItem {
	return &OrderItem{
		id:          s.ID,
		productID:   s.ProductID,
		productName: s.ProductName,
		unitPrice:   s.UnitPrice,
		discount:    s.Discount,
		units:       s.Units,
		pictureURL:  s.PictureURL,
	}
}
