package database

import (
	"context"
	"fmt"
	"io"
	"log"

	"erpadmin/internal/config"
	"erpadmin/internal/model"
	"erpadmin/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Models lists every table managed by AutoMigrate.
func Models() []any {
	return []any{
		&model.User{},
		&model.AuditLog{},
		&model.TaxRule{},
		&model.Order{},
		&model.LineItem{},
		&model.ExchangeRecord{},
		&model.InventoryItem{},
		&model.DefectRecord{},
		&model.Dispatch{},
		&model.DispatchItem{},
	}
}

// NewConnection initializes a new connection pool using GORM
func NewConnection(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:         gormlogger.New(log.New(io.Discard, "", log.LstdFlags), gormlogger.Config{LogLevel: gormlogger.Silent}),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			logg.Error(ctx, "database.migrate_failed", err)
		}
	}

	logg.Info(ctx, "database connection established")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// Close releases the pooled connections.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
