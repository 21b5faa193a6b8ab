/*
Package db opens the PostgreSQL connection pool and applies the embedded schema migrations.
*/
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"relaychat/internal/pkg/logx"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// connectTimeout bounds pool creation, the first ping and migrations.
const connectTimeout = 15 * time.Second

// NewPool creates a PostgreSQL connection pool and runs pending migrations.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := runMigrations(ctx, sqlDB); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// runMigrations applies all pending migrations from the embedded file system.
func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(gooseLogger{})

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logx.Info("Database migrations applied successfully.")
	return nil
}

// gooseLogger routes goose output to the structured logger.
type gooseLogger struct{}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	logx.Logger().Fatal().Str("component", "goose").Msgf(format, v...)
}

func (gooseLogger) Printf(format string, v ...interface{}) {
	logx.Logger().Info().Str("component", "goose").Msgf(format, v...)
}
