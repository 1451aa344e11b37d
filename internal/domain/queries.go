package domain

import (
	"context"
	"time"
)

// OrderQueries — контракт read-стороны. Все реализации обязаны возвращать
// идентичные проекции для одного и того же состояния хранилища.
type OrderQueries interface {
	// GetOrder возвращает детализацию заказа или ErrOrderNotFound.
	GetOrder(ctx context.Context, id int64) (OrderDetail, error)
	// GetOrdersFromUser возвращает заказы покупателя по внешней identity,
	// упорядоченные по номеру заказа. Для неизвестной identity список пуст.
	GetOrdersFromUser(ctx context.Context, buyerIdentity string) ([]OrderSummary, error)
	// GetCardTypes возвращает справочник поддерживаемых типов карт.
	GetCardTypes(ctx context.Context) ([]CardType, error)
}

// OrderDetail — полная проекция заказа.
type OrderDetail struct {
	OrderNumber int64             `json:"ordernumber"`
	Date        time.Time         `json:"date"`
	Status      string            `json:"status"`
	Description string            `json:"description"`
	Street      string            `json:"street"`
	City        string            `json:"city"`
	State       string            `json:"state"`
	Country     string            `json:"country"`
	ZipCode     string            `json:"zipcode"`
	Total       Money             `json:"total"`
	OrderItems  []OrderDetailItem `json:"orderitems"`
}

// OrderDetailItem — позиция в проекции заказа.
type OrderDetailItem struct {
	ProductName string `json:"productname"`
	Units       int    `json:"units"`
	UnitPrice   Money  `json:"unitprice"`
	PictureURL  string `json:"pictureurl"`
}

// OrderSummary — краткая проекция заказа для списка покупателя.
type OrderSummary struct {
	OrderNumber int64     `json:"ordernumber"`
	Date        time.Time `json:"date"`
	Status      string    `json:"status"`
	Total       Money     `json:"total"`
}

// CardType — запись справочника типов карт.
type CardType struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// NewOrderDetail строит проекцию из материализованного агрегата.
func NewOrderDetail(o *Order) OrderDetail {
	addr := o.Address()
	detail := OrderDetail{
		OrderNumber: o.ID(),
		Date:        o.OrderDate().UTC(),
		Status:      o.Status().Name(),
		Description: o.Description(),
		Street:      addr.Street,
		City:        addr.City,
		State:       addr.State,
		Country:     addr.Country,
		ZipCode:     addr.ZipCode,
		Total:       o.Total(),
		OrderItems:  make([]OrderDetailItem, 0, len(o.items)),
	}
	for _, item := range o.items {
		detail.OrderItems = append(detail.OrderItems, OrderDetailItem{
			ProductName: item.ProductName(),
			Units:       item.Units(),
			UnitPrice:   item.UnitPrice(),
			PictureURL:  item.PictureURL(),
		})
	}
	return detail
}

// NewOrderSummary строит краткую проекцию из материализованного агрегата.
func NewOrderSummary(o *Order) OrderSummary {
	return OrderSummary{
		OrderNumber: o.ID(),
		Date:        o.OrderDate().UTC(),
		Status:      o.Status().Name(),
		Total:       o.Total(),
	}
}
