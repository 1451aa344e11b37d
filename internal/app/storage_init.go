package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordering/internal/config"
	"github.com/vladislavdragonenkov/ordering/internal/domain"
	"github.com/vladislavdragonenkov/ordering/internal/metrics"
	"github.com/vladislavdragonenkov/ordering/internal/service/queries"
	"github.com/vladislavdragonenkov/ordering/internal/storage/gormstore"
	"github.com/vladislavdragonenkov/ordering/internal/storage/memory"
	"github.com/vladislavdragonenkov/ordering/internal/storage/postgres"
)

// outboxStore — outbox выбранного драйвера вместе с очисткой отправленных сообщений.
type outboxStore interface {
	domain.OutboxRepository
	domain.OutboxPurger
}

// runtimeStorage — репозитории, read-пути и outbox выбранного драйвера.
type runtimeStorage struct {
	orders  domain.OrderRepository
	buyers  domain.BuyerRepository
	outbox  outboxStore
	paths   map[string]domain.OrderQueries
	ping    func(ctx context.Context) error
	closeFn func() error
}

func (s *runtimeStorage) close() error {
	if s == nil || s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// initStorage открывает хранилище. На PostgreSQL и SQLite оба read-пути
// работают над одним *sql.DB.
func initStorage(ctx context.Context, cfg config.Config, logger *log.Entry) (*runtimeStorage, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		return initPostgresStorage(ctx, cfg, logger)
	case config.StorageDriverSQLite:
		return initSQLiteStorage(ctx, cfg, logger)
	case config.StorageDriverMemory:
		store := memory.NewStore()
		logger.Info("using in-memory storage")
		return &runtimeStorage{
			orders: store.Orders(),
			buyers: store.Buyers(),
			outbox: store.Outbox(),
			paths:  map[string]domain.OrderQueries{queries.PathMemory: store.Queries()},
			ping:   func(context.Context) error { return nil },
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

func initPostgresStorage(ctx context.Context, cfg config.Config, logger *log.Entry) (*runtimeStorage, error) {
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	pg, err := postgres.Open(ctx, cfg.Postgres.DSN, postgres.PoolOptions{
		MaxOpenConns:    cfg.Postgres.Pool.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.Pool.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.Pool.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Postgres.Pool.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Postgres.AutoMigrate {
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}

	orm, err := gormstore.OpenPostgres(pg.DB())
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	logger.WithField("auto_migrate", cfg.Postgres.AutoMigrate).Info("using postgres storage")
	return &runtimeStorage{
		orders: orm.Orders(),
		buyers: orm.Buyers(),
		outbox: pg.Outbox(),
		paths: map[string]domain.OrderQueries{
			queries.PathORM: orm.Queries(),
			queries.PathSQL: pg.Queries(),
		},
		ping: pg.Ping,
		// gorm работает поверх того же пула, закрываем только его.
		closeFn: pg.Close,
	}, nil
}

func initSQLiteStorage(ctx context.Context, cfg config.Config, logger *log.Entry) (*runtimeStorage, error) {
	orm, err := gormstore.OpenSQLite(ctx, cfg.Storage.SQLiteDSN)
	if err != nil {
		return nil, err
	}
	sqlDB, err := orm.SQLDB()
	if err != nil {
		_ = orm.Close()
		return nil, err
	}

	logger.WithField("dsn", cfg.Storage.SQLiteDSN).Info("using sqlite storage")
	return &runtimeStorage{
		orders: orm.Orders(),
		buyers: orm.Buyers(),
		outbox: orm.Outbox(),
		paths: map[string]domain.OrderQueries{
			queries.PathORM: orm.Queries(),
			queries.PathSQL: postgres.NewOrderQueries(sqlDB),
		},
		ping:    orm.Ping,
		closeFn: orm.Close,
	}, nil
}

// instrumentPaths оборачивает каждый read-путь метриками.
func instrumentPaths(paths map[string]domain.OrderQueries, m *metrics.QueryMetrics) map[string]domain.OrderQueries {
	result := make(map[string]domain.OrderQueries, len(paths))
	for name, path := range paths {
		result[name] = queries.NewInstrumented(name, path, m)
	}
	return result
}

// selectQueries выбирает основной read-путь и, если включена сверка,
// подключает второй путь теневым.
func selectQueries(cfg config.Config, paths map[string]domain.OrderQueries, m *metrics.QueryMetrics, logger *log.Entry) (domain.OrderQueries, error) {
	if len(paths) == 1 {
		for name, only := range paths {
			logger.WithField("path", name).Info("single read path available")
			return only, nil
		}
	}

	primary, ok := paths[cfg.Queries.Primary]
	if !ok {
		return nil, fmt.Errorf("read path %q is not available", cfg.Queries.Primary)
	}
	if !cfg.Queries.Shadow {
		logger.WithField("path", cfg.Queries.Primary).Info("read path selected")
		return primary, nil
	}

	shadowName := queries.PathORM
	if cfg.Queries.Primary == queries.PathORM {
		shadowName = queries.PathSQL
	}
	shadow, ok := paths[shadowName]
	if !ok {
		return nil, fmt.Errorf("shadow read path %q is not available", shadowName)
	}

	logger.WithFields(log.Fields{
		"path":   cfg.Queries.Primary,
		"shadow": shadowName,
	}).Info("read path selected with shadow comparison")
	return queries.NewShadow(primary, shadow, queries.WithShadowMetrics(m)), nil
}
