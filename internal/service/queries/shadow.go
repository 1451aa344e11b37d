package queries

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
	"github.com/vladislavdragonenkov/ordering/internal/metrics"
)

// Divergence описывает расхождение двух read-путей на одном запросе.
type Divergence struct {
	Query     string
	Key       string
	Primary   any
	Shadow    any
	PrimErr   error
	ShadowErr error
}

func (d Divergence) String() string {
	if d.PrimErr != nil || d.ShadowErr != nil {
		return fmt.Sprintf("%s(%s): primary err=%v, shadow err=%v", d.Query, d.Key, d.PrimErr, d.ShadowErr)
	}
	return fmt.Sprintf("%s(%s): primary=%+v shadow=%+v", d.Query, d.Key, d.Primary, d.Shadow)
}

// ShadowOption настраивает Shadow.
type ShadowOption func(*Shadow)

// WithDivergenceHandler задаёт обработчик расхождений (помимо лога и метрики).
func WithDivergenceHandler(fn func(Divergence)) ShadowOption {
	return func(s *Shadow) {
		s.onDivergence = fn
	}
}

// WithShadowMetrics задаёт коллекторы для учёта сверок.
func WithShadowMetrics(m *metrics.QueryMetrics) ShadowOption {
	return func(s *Shadow) {
		s.metrics = m
	}
}

// Shadow отвечает результатом основного пути и сверяет его с теневым.
// Ошибка теневого пути вызывающему не возвращается.
type Shadow struct {
	primary      domain.OrderQueries
	shadow       domain.OrderQueries
	metrics      *metrics.QueryMetrics
	logger       *log.Entry
	onDivergence func(Divergence)
}

// NewShadow создаёт сверяющую обёртку.
func NewShadow(primary, shadow domain.OrderQueries, options ...ShadowOption) *Shadow {
	s := &Shadow{
		primary: primary,
		shadow:  shadow,
		logger:  log.WithField("component", "shadow-queries"),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *Shadow) GetOrder(ctx context.Context, id int64) (domain.OrderDetail, error) {
	detail, err := s.primary.GetOrder(ctx, id)
	shadowDetail, shadowErr := s.shadow.GetOrder(ctx, id)
	s.compare(ctx, QueryGetOrder, fmt.Sprint(id), detail, err, shadowDetail, shadowErr)
	return detail, err
}

func (s *Shadow) GetOrdersFromUser(ctx context.Context, buyerIdentity string) ([]domain.OrderSummary, error) {
	summaries, err := s.primary.GetOrdersFromUser(ctx, buyerIdentity)
	shadowSummaries, shadowErr := s.shadow.GetOrdersFromUser(ctx, buyerIdentity)
	s.compare(ctx, QueryGetOrdersFromUser, buyerIdentity, summaries, err, shadowSummaries, shadowErr)
	return summaries, err
}

func (s *Shadow) GetCardTypes(ctx context.Context) ([]domain.CardType, error) {
	cardTypes, err := s.primary.GetCardTypes(ctx)
	shadowCardTypes, shadowErr := s.shadow.GetCardTypes(ctx)
	s.compare(ctx, QueryGetCardTypes, "", cardTypes, err, shadowCardTypes, shadowErr)
	return cardTypes, err
}

func (s *Shadow) compare(ctx context.Context, query, key string, primary any, primErr error, shadow any, shadowErr error) {
	// Отменённый запрос ничего не говорит о согласованности путей.
	if ctx.Err() != nil || isInterrupted(primErr) || isInterrupted(shadowErr) {
		return
	}

	diverged := !sameOutcome(primary, primErr, shadow, shadowErr)
	s.metrics.RecordComparison(query, diverged)
	if !diverged {
		return
	}

	d := Divergence{
		Query:     query,
		Key:       key,
		Primary:   primary,
		Shadow:    shadow,
		PrimErr:   primErr,
		ShadowErr: shadowErr,
	}
	s.logger.WithFields(log.Fields{
		"query": query,
		"key":   key,
	}).Warn("read paths diverged: " + d.String())
	if s.onDivergence != nil {
		s.onDivergence(d)
	}
}

func sameOutcome(primary any, primErr error, shadow any, shadowErr error) bool {
	switch {
	case primErr == nil && shadowErr == nil:
		return reflect.DeepEqual(primary, shadow)
	case primErr != nil && shadowErr != nil:
		return domain.IsNotFound(primErr) == domain.IsNotFound(shadowErr)
	default:
		return false
	}
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

var _ domain.OrderQueries = (*Shadow)(nil)
