// Package app собирает сервис: хранилище, read-пути, outbox worker и
// HTTP-сервер метрик и health checks.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/ordering/internal/config"
	"github.com/vladislavdragonenkov/ordering/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/ordering/internal/health"
	"github.com/vladislavdragonenkov/ordering/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ordering/internal/metrics"
	"github.com/vladislavdragonenkov/ordering/internal/service/outbox"
	"github.com/vladislavdragonenkov/ordering/internal/version"
)

const (
	shutdownTimeout = 5 * time.Second
	// outboxBacklogThreshold — backlog, после которого /healthz отдаёт degraded.
	outboxBacklogThreshold = 1000
)

// App — собранный сервис.
type App struct {
	cfg      config.Config
	logger   *log.Entry
	storage  *runtimeStorage
	paths    map[string]domain.OrderQueries
	queries  domain.OrderQueries
	producer *kafka.Producer
	worker   *outbox.Worker
	purger   *outbox.RetentionWorker
	health   *healthcheck.Handler
}

// New открывает хранилище и собирает компоненты. Вызывающий обязан Close.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	return newApp(ctx, cfg, prometheus.DefaultRegisterer)
}

func newApp(ctx context.Context, cfg config.Config, registerer prometheus.Registerer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := log.WithField("component", "app")

	storage, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	queryMetrics := metrics.NewQueryMetricsWithRegisterer(registerer)
	paths := instrumentPaths(storage.paths, queryMetrics)
	selected, err := selectQueries(cfg, paths, queryMetrics, logger)
	if err != nil {
		_ = storage.close()
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		storage: storage,
		paths:   paths,
		queries: selected,
		health:  healthcheck.NewHandler(version.GetVersion()),
	}

	// Kafka необязательна: без неё сервис обслуживает чтение, события копятся в outbox.
	producer, err := initKafkaProducer(cfg.Kafka.Brokers, logger)
	if err == nil {
		a.producer = producer
	}
	outboxMetrics := metrics.NewOutboxMetricsWithRegisterer(registerer)
	a.worker = newOutboxWorker(cfg, storage.outbox, a.producer, outboxMetrics, logger)
	a.purger = newRetentionWorker(cfg, storage.outbox, outboxMetrics, logger)

	a.health.Register("storage", storage.ping)
	a.health.Register("outbox_backlog", healthcheck.Threshold(outboxBacklogThreshold, func(context.Context) (int64, error) {
		stats, err := storage.outbox.Stats()
		return int64(stats.PendingCount), err
	}), healthcheck.Optional())

	return a, nil
}

// Queries возвращает выбранный read-путь (с теневой сверкой, если она включена).
func (a *App) Queries() domain.OrderQueries { return a.queries }

// Paths возвращает все доступные read-пути с метриками.
func (a *App) Paths() map[string]domain.OrderQueries { return a.paths }

// Orders возвращает репозиторий заказов.
func (a *App) Orders() domain.OrderRepository { return a.storage.orders }

// Buyers возвращает репозиторий покупателей.
func (a *App) Buyers() domain.BuyerRepository { return a.storage.buyers }

// Serve запускает outbox worker и HTTP-сервер метрик до отмены ctx.
func (a *App) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	lis, err := net.Listen("tcp", a.cfg.MetricsAddr)
	if err != nil {
		return err
	}
	srv := newMetricsServer(a.health)

	g.Go(func() error {
		a.logger.Infof("метрики доступны по адресу %s/metrics", lis.Addr())
		a.logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", lis.Addr(), lis.Addr(), lis.Addr())
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownHTTP(srv, a.logger)
		return nil
	})
	if a.worker != nil {
		g.Go(func() error {
			a.worker.Run(ctx)
			return nil
		})
	}
	if a.purger != nil {
		g.Go(func() error {
			a.purger.Run(ctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Close освобождает producer и хранилище.
func (a *App) Close() error {
	closeKafka(a.producer, a.logger)
	return a.storage.close()
}

// Run собирает сервис и обслуживает его до отмены ctx.
func Run(ctx context.Context, cfg config.Config) error {
	a, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.WithError(err).Warn("failed to close storage")
		}
	}()

	a.logger.WithFields(version.Fields()).Info("ordering service started")
	return a.Serve(ctx)
}

// newMetricsServer собирает HTTP-обработчики /metrics и health checks.
func newMetricsServer(healthHandler *healthcheck.Handler) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.GetHead)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Method(http.MethodGet, "/healthz", healthHandler)
	r.Get("/livez", healthcheck.LivenessHandler)
	r.Get("/readyz", healthHandler.ReadinessHandler)

	return &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
