package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"fleet-analytics-service/internal/config"
)

// New connects to PostgreSQL, retrying until cfg.DB.ConnectTimeout, then
// applies the pool settings and runs the migrations.
func New(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DB.ConnectTimeout)
	defer cancel()

	return Open(ctx, postgres.Open(cfg.DB.DSN), cfg.DB, log)
}

// Open is New for any dialector.
func Open(ctx context.Context, dialector gorm.Dialector, cfg config.DBConfig, log zerolog.Logger) (*gorm.DB, error) {
	gormLog := log.With().Str("component", "gorm").Logger()

	var database *gorm.DB
	connect := func() error {
		conn, err := gorm.Open(dialector, &gorm.Config{
			Logger: gormlogger.New(&gormLog, gormlogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			}),
		})
		if err != nil {
			return err
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return err
		}
		database = conn
		return nil
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("retry_in", wait).Msg("database not ready")
	}
	if err := backoff.RetryNotify(connect, policy, notify); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := runMigrations(database.WithContext(ctx), log); err != nil {
		return nil, err
	}
	return database, nil
}
