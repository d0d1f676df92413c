package database

import (
	"context"
	"embed"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/JokingLove/whale-alert-sync/common/retry"
	"github.com/JokingLove/whale-alert-sync/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type DB struct {
	gorm *gorm.DB

	WhaleTransactions WhaleTransactionsDB
	PollingState      PollingStateDB
	Subscriptions     SubscriptionsDB
	Notifications     NotificationsDB
}

func NewDB(ctx context.Context, dbConfig config.DBConfig) (*DB, error) {
	dsn := fmt.Sprintf("host=%s dbname=%s sslmode=disable", dbConfig.Host, dbConfig.Name)
	if dbConfig.Port != 0 {
		dsn += fmt.Sprintf(" port=%d", dbConfig.Port)
	}
	if dbConfig.User != "" {
		dsn += fmt.Sprintf(" user=%s", dbConfig.User)
	}
	if dbConfig.Password != "" {
		dsn += fmt.Sprintf(" password=%s", dbConfig.Password)
	}

	retryStrategy := &retry.ExponentialStrategy{Min: time.Second, Max: 20 * time.Second, MaxJitter: 250 * time.Millisecond}
	gormDbBox, err := retry.Do[*gorm.DB](ctx, 10, retryStrategy, func() (*gorm.DB, error) {
		gormDb, err := gorm.Open(postgres.Open(dsn), GormConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return gormDb, nil
	})
	if err != nil {
		return nil, err
	}

	return NewDBFromGorm(gormDbBox), nil
}

// GormConfig is shared by the postgres connection and the test databases.
func GormConfig() *gorm.Config {
	newLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)
	return &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        3_000,
		Logger:                 newLogger,
	}
}

func NewDBFromGorm(gormDb *gorm.DB) *DB {
	return &DB{
		gorm:              gormDb,
		WhaleTransactions: NewWhaleTransactionsDB(gormDb),
		PollingState:      NewPollingStateDB(gormDb),
		Subscriptions:     NewSubscriptionsDB(gormDb),
		Notifications:     NewNotificationsDB(gormDb),
	}
}

func (db *DB) Transaction(fn func(db *DB) error) error {
	return db.gorm.Transaction(func(tx *gorm.DB) error {
		return fn(NewDBFromGorm(tx))
	})
}

func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (db *DB) Close() error {
	sql, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sql.Close()
}

// RunMigrations applies the embedded postgres migrations up to the latest version.
func (db *DB) RunMigrations(dbName string) error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{DatabaseName: dbName})
	if err != nil {
		return errors.Wrap(err, "could not create migration driver")
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "could not open embedded migrations")
	}
	m, err := migrate.NewWithInstance("iofs", source, dbName, driver)
	if err != nil {
		return errors.Wrap(err, "could not create migrate instance")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "could not run up migrations")
	}
	return nil
}

// AutoMigrate derives the schema from the models. Used for databases the
// postgres migrations cannot target, such as the sqlite test database.
func (db *DB) AutoMigrate() error {
	return db.gorm.AutoMigrate(
		&WhaleTransaction{},
		&PollingState{},
		&WhaleSubscription{},
		&FeatureEntitlement{},
		&Notification{},
	)
}
