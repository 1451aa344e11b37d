// Package queries содержит обёртки над read-путями: метрики и теневую сверку.
package queries

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
	"github.com/vladislavdragonenkov/ordering/internal/metrics"
)

// Имена read-путей для метрик и конфигурации.
const (
	PathORM    = "orm"
	PathSQL    = "sql"
	PathMemory = "memory"
)

// Имена запросов для label query.
const (
	QueryGetOrder          = "get_order"
	QueryGetOrdersFromUser = "get_orders_from_user"
	QueryGetCardTypes      = "get_card_types"
)

// Instrumented измеряет каждый вызов read-пути и логирует сбои хранилища.
type Instrumented struct {
	next    domain.OrderQueries
	path    string
	metrics *metrics.QueryMetrics
	logger  *log.Entry
}

// NewInstrumented оборачивает read-путь path.
func NewInstrumented(path string, next domain.OrderQueries, m *metrics.QueryMetrics) *Instrumented {
	return &Instrumented{
		next:    next,
		path:    path,
		metrics: m,
		logger:  log.WithFields(log.Fields{"component": "order-queries", "path": path}),
	}
}

// Path возвращает имя обёрнутого пути.
func (i *Instrumented) Path() string { return i.path }

func (i *Instrumented) GetOrder(ctx context.Context, id int64) (domain.OrderDetail, error) {
	start := time.Now()
	detail, err := i.next.GetOrder(ctx, id)
	i.observe(QueryGetOrder, start, err, log.Fields{"order_id": id})
	return detail, err
}

func (i *Instrumented) GetOrdersFromUser(ctx context.Context, buyerIdentity string) ([]domain.OrderSummary, error) {
	start := time.Now()
	summaries, err := i.next.GetOrdersFromUser(ctx, buyerIdentity)
	i.observe(QueryGetOrdersFromUser, start, err, log.Fields{"buyer_identity": buyerIdentity})
	return summaries, err
}

func (i *Instrumented) GetCardTypes(ctx context.Context) ([]domain.CardType, error) {
	start := time.Now()
	cardTypes, err := i.next.GetCardTypes(ctx)
	i.observe(QueryGetCardTypes, start, err, nil)
	return cardTypes, err
}

func (i *Instrumented) observe(query string, start time.Time, err error, fields log.Fields) {
	elapsed := time.Since(start)
	i.metrics.ObserveQuery(i.path, query, elapsed, err)
	if err == nil || domain.IsNotFound(err) {
		return
	}
	i.logger.WithError(err).WithFields(fields).WithFields(log.Fields{
		"query":    query,
		"duration": elapsed,
	}).Warn("read path query failed")
}

var _ domain.OrderQueries = (*Instrumented)(nil)
