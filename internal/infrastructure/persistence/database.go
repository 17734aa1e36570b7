package persistence

import (
	"database/sql"
	"fmt"

	"github.com/freightdesk/backend/internal/infrastructure/config"
	"github.com/freightdesk/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database is the invoicing store's connection pool
type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the pool with GORM's own logging silenced
func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	return connect(postgres.Open(cfg.DSN()), cfg, gormlogger.Default.LogMode(gormlogger.Silent))
}

// NewDatabaseWithLogger opens the pool and routes SQL logging through zap,
// honouring cfg.LogLevel and cfg.SlowQuery
func NewDatabaseWithLogger(cfg *config.DatabaseConfig, log *zap.Logger) (*Database, error) {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.LogLevel), cfg.SlowQuery)
	return connect(postgres.Open(cfg.DSN()), cfg, gormLog)
}

// NewGormConfig is shared by every connection, including tests.
// TranslateError maps unique violations to gorm.ErrDuplicatedKey, which the
// repositories turn into shared.ErrAlreadyExists.
func NewGormConfig(gormLog gormlogger.Interface) *gorm.Config {
	return &gorm.Config{
		Logger:                 gormLog,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	}
}

func connect(dialector gorm.Dialector, cfg *config.DatabaseConfig, gormLog gormlogger.Interface) (*Database, error) {
	gdb, err := gorm.Open(dialector, NewGormConfig(gormLog))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	d := &Database{DB: gdb}

	pool, err := d.sqlDB()
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := pool.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return d, nil
}

func (d *Database) sqlDB() (*sql.DB, error) {
	pool, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return pool, nil
}

// SQL exposes the underlying pool, e.g. for the schema migrator
func (d *Database) SQL() (*sql.DB, error) {
	return d.sqlDB()
}

// Ping checks that the database answers; used by the health endpoint
func (d *Database) Ping() error {
	pool, err := d.sqlDB()
	if err != nil {
		return err
	}
	return pool.Ping()
}

// PoolStats reports the pool counters shown on the health endpoint.
// A zero value is returned when the pool is unavailable.
func (d *Database) PoolStats() sql.DBStats {
	pool, err := d.sqlDB()
	if err != nil {
		return sql.DBStats{}
	}
	return pool.Stats()
}

// Close closes the pool
func (d *Database) Close() error {
	pool, err := d.sqlDB()
	if err != nil {
		return err
	}
	return pool.Close()
}
