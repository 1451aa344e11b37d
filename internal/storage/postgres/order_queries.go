package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

const (
	getOrderQuery = `
		SELECT o.id, o.order_date, s.name, o.description,
		       o.street, o.city, o.state, o.country, o.zip_code,
		       i.product_name, i.units, i.unit_price_minor, i.discount_minor, i.picture_url
		FROM orders o
		JOIN order_status s ON s.id = o.order_status_id
		LEFT JOIN order_items i ON i.order_id = o.id
		WHERE o.id = $1
		ORDER BY i.id`

	// Сумма считается коррелированным подзапросом, а не GROUP BY: так
	// order_date сохраняет тип колонки и на SQLite.
	getOrdersFromUserQuery = `
		SELECT o.id, o.order_date, s.name,
		       CAST(COALESCE((
		           SELECT SUM(i.unit_price_minor * i.units - i.discount_minor)
		           FROM order_items i
		           WHERE i.order_id = o.id
		       ), 0) AS BIGINT) AS total
		FROM orders o
		JOIN buyers b ON b.id = o.buyer_id
		JOIN order_status s ON s.id = o.order_status_id
		WHERE b.identity_guid = $1
		ORDER BY o.id`

	getCardTypesQuery = `SELECT id, name FROM card_types ORDER BY id`
)

// OrderQueries — read-путь на параметризованном SQL без ORM.
// Работает с любым *sql.DB, чей драйвер понимает плейсхолдеры $N.
type OrderQueries struct {
	db *sql.DB
}

// NewOrderQueries создаёт raw-SQL read-путь.
func NewOrderQueries(db *sql.DB) *OrderQueries {
	return &OrderQueries{db: db}
}

// GetOrder читает заказ и его позиции одним запросом; итог считается по строкам позиций.
func (q *OrderQueries) GetOrder(ctx context.Context, id int64) (domain.OrderDetail, error) {
	rows, err := q.db.QueryContext(ctx, getOrderQuery, id)
	if err != nil {
		return domain.OrderDetail{}, domain.StoreUnavailable("get order", err)
	}
	defer rows.Close()

	var (
		detail domain.OrderDetail
		found  bool
	)
	detail.OrderItems = make([]domain.OrderDetailItem, 0)
	for rows.Next() {
		var (
			orderDate   time.Time
			productName sql.NullString
			units       sql.NullInt64
			unitPrice   sql.NullInt64
			discount    sql.NullInt64
			pictureURL  sql.NullString
		)
		if err := rows.Scan(
			&detail.OrderNumber,
			&orderDate,
			&detail.Status,
			&detail.Description,
			&detail.Street,
			&detail.City,
			&detail.State,
			&detail.Country,
			&detail.ZipCode,
			&productName,
			&units,
			&unitPrice,
			&discount,
			&pictureURL,
		); err != nil {
			return domain.OrderDetail{}, domain.StoreUnavailable("scan order", err)
		}
		found = true
		detail.Date = orderDate.UTC()

		// LEFT JOIN даёт одну строку с NULL-позицией для заказа без позиций.
		if !productName.Valid {
			continue
		}
		price := domain.Money(unitPrice.Int64)
		detail.Total += price.Times(int(units.Int64)) - domain.Money(discount.Int64)
		detail.OrderItems = append(detail.OrderItems, domain.OrderDetailItem{
			ProductName: productName.String,
			Units:       int(units.Int64),
			UnitPrice:   price,
			PictureURL:  pictureURL.String,
		})
	}
	if err := rows.Err(); err != nil {
		return domain.OrderDetail{}, domain.StoreUnavailable("iterate order rows", err)
	}
	if !found {
		return domain.OrderDetail{}, domain.ErrOrderNotFound
	}

	return detail, nil
}

// GetOrdersFromUser возвращает краткие проекции заказов покупателя по его identity.
func (q *OrderQueries) GetOrdersFromUser(ctx context.Context, buyerIdentity string) ([]domain.OrderSummary, error) {
	rows, err := q.db.QueryContext(ctx, getOrdersFromUserQuery, buyerIdentity)
	if err != nil {
		return nil, domain.StoreUnavailable("list orders", err)
	}
	defer rows.Close()

	result := make([]domain.OrderSummary, 0)
	for rows.Next() {
		var (
			summary   domain.OrderSummary
			orderDate time.Time
			total     int64
		)
		if err := rows.Scan(&summary.OrderNumber, &orderDate, &summary.Status, &total); err != nil {
			return nil, domain.StoreUnavailable("scan order summary", err)
		}
		summary.Date = orderDate.UTC()
		summary.Total = domain.Money(total)
		result = append(result, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreUnavailable("iterate order summaries", err)
	}

	return result, nil
}

// GetCardTypes читает справочник типов карт.
func (q *OrderQueries) GetCardTypes(ctx context.Context) ([]domain.CardType, error) {
	rows, err := q.db.QueryContext(ctx, getCardTypesQuery)
	if err != nil {
		return nil, domain.StoreUnavailable("list card types", err)
	}
	defer rows.Close()

	result := make([]domain.CardType, 0, 3)
	for rows.Next() {
		var ct domain.CardType
		if err := rows.Scan(&ct.ID, &ct.Name); err != nil {
			return nil, domain.StoreUnavailable("scan card type", err)
		}
		result = append(result, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreUnavailable("iterate card types", err)
	}

	return result, nil
}

var _ domain.OrderQueries = (*OrderQueries)(nil)
