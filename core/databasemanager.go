package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carolinalumpers.com/clockin/model"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type LogLevel int

const (
	LogLevelSilent LogLevel = iota + 1
	LogLevelError
	LogLevelWarn
	LogLevelInfo
)

func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent":
		return LogLevelSilent
	case "error":
		return LogLevelError
	case "warn", "warning":
		return LogLevelWarn
	case "info":
		return LogLevelInfo
	}
	return LogLevelWarn
}

type DatabaseManager struct {
	DB       *gorm.DB
	Driver   string
	LogLevel LogLevel
}

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "", "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// New opens the pool for driver. SQLite is pinned to one connection because
// each ":memory:" connection would otherwise see its own empty database.
func New(driver, dsn string, maxConnection int, level LogLevel) (*DatabaseManager, error) {
	d, err := dialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	// Map local LogLevel to GORM LogLevel
	gormLogLevel := logger.Warn
	switch level {
	case LogLevelError:
		gormLogLevel = logger.Error
	case LogLevelWarn:
		gormLogLevel = logger.Warn
	case LogLevelInfo:
		gormLogLevel = logger.Info
	case LogLevelSilent:
		gormLogLevel = logger.Silent
	}

	db, err := gorm.Open(d, &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}
	if driver == "sqlite" {
		maxConnection = 1
	}
	sqlDB.SetMaxOpenConns(maxConnection)
	sqlDB.SetMaxIdleConns(maxConnection)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping pool: %w", err)
	}

	return &DatabaseManager{DB: db, Driver: driver, LogLevel: level}, nil
}

// Exec runs fn against a session bound to ctx.
func (dm *DatabaseManager) Exec(ctx context.Context, fn func(db *gorm.DB) error) error {
	return fn(dm.DB.WithContext(ctx))
}

// Migrate creates or updates the clock-in tables.
func (dm *DatabaseManager) Migrate(ctx context.Context) error {
	return dm.Exec(ctx, func(db *gorm.DB) error {
		if err := db.AutoMigrate(&model.Worker{}, &model.ClockInRecord{}); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		return nil
	})
}

// Close closes the pool
func (dm *DatabaseManager) Close() error {
	sqlDB, err := dm.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
