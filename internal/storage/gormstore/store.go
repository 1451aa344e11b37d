// Package gormstore — ORM-реализация хранилища заказов: репозитории агрегатов
// с единицей работы в транзакции и read-путь, материализующий агрегаты.
package gormstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

const defaultSlowThreshold = 200 * time.Millisecond

// Store хранит *gorm.DB и выдаёт репозитории и read-путь поверх него.
type Store struct {
	db     *gorm.DB
	logger *log.Entry
}

// OpenPostgres поднимает gorm поверх уже открытого pgx-подключения, чтобы ORM
// и raw-SQL пути делили один пул.
func OpenPostgres(sqlDB *sql.DB) (*Store, error) {
	return open(postgres.New(postgres.Config{Conn: sqlDB}))
}

// OpenSQLite открывает SQLite по DSN (например, "file::memory:") и создаёт схему.
func OpenSQLite(ctx context.Context, dsn string) (*Store, error) {
	s, err := open(sqlite.Open(dsn))
	if err != nil {
		return nil, err
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// In-memory база живёт в одном соединении.
	sqlDB.SetMaxOpenConns(1)

	if err := s.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func open(dialector gorm.Dialector) (*Store, error) {
	logger := log.WithField("component", "gormstore")
	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger: gormLogger.New(logger, gormLogger.Config{
			SlowThreshold:             defaultSlowThreshold,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Migrate создаёт схему через AutoMigrate и заполняет справочники.
// Для PostgreSQL схемой владеет SQL-мигратор, здесь это путь для SQLite и тестов.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	statuses := make([]orderStatusModel, 0, len(domain.OrderStatuses()))
	for _, st := range domain.OrderStatuses() {
		statuses = append(statuses, orderStatusModel{ID: int(st), Name: st.Name()})
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&statuses).Error; err != nil {
		return fmt.Errorf("seed order statuses: %w", err)
	}

	cardTypes := make([]cardTypeModel, 0, len(domain.SupportedCardTypes()))
	for _, ct := range domain.SupportedCardTypes() {
		cardTypes = append(cardTypes, cardTypeModel{ID: ct.ID, Name: ct.Name})
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&cardTypes).Error; err != nil {
		return fmt.Errorf("seed card types: %w", err)
	}

	s.logger.Debug("schema migrated")
	return nil
}

// DB возвращает *gorm.DB.
func (s *Store) DB() *gorm.DB { return s.db }

// SQLDB возвращает нижележащее *sql.DB для raw-SQL пути.
func (s *Store) SQLDB() (*sql.DB, error) { return s.db.DB() }

// Orders возвращает репозиторий заказов.
func (s *Store) Orders() domain.OrderRepository { return &orderRepository{db: s.db} }

// Buyers возвращает репозиторий покупателей.
func (s *Store) Buyers() domain.BuyerRepository { return &buyerRepository{db: s.db} }

// Queries возвращает ORM read-путь.
func (s *Store) Queries() domain.OrderQueries { return &orderQueries{db: s.db} }

// Outbox возвращает ORM-реализацию outbox для драйверов без raw-SQL outbox.
func (s *Store) Outbox() *OutboxRepository { return &OutboxRepository{db: s.db} }

// Ping проверяет доступность базы.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close закрывает подключение, если оно принадлежит хранилищу.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
