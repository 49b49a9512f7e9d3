package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vogiaan1904/ticketbottle-reservation/config"
	"github.com/vogiaan1904/ticketbottle-reservation/migrations"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
)

func Connect(ctx context.Context, cfg config.PostgresConfig, l logger.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if cfg.MigrateOnStart {
		if err := migrations.Apply(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		l.Info(ctx, "Postgres migrations applied.")
	}

	l.Info(ctx, "Connected to Postgres.")

	return pool, nil
}

func Disconnect(ctx context.Context, pool *pgxpool.Pool, l logger.Logger) {
	if pool == nil {
		return
	}

	pool.Close()

	l.Info(ctx, "Connection to Postgres closed.")
}
