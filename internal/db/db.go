// Package db opens the connections behind the persistent store backends.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// ClientName tags every connection so it can be told apart on a shared server.
const ClientName = "interview-scheduler"

const pingTimeout = 5 * time.Second

// OpenPostgres returns a pool for DATABASE_URL once the server has answered.
func OpenPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("DATABASE_URL: %w", err)
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = ClientName
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := ping(ctx, pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}
	return pool, nil
}

// OpenRedis returns a client for REDIS_URL once the server has answered.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("REDIS_URL: %w", err)
	}
	if opts.ClientName == "" {
		opts.ClientName = ClientName
	}
	rdb := redis.NewClient(opts)
	err = ping(ctx, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis unreachable: %w", err)
	}
	return rdb, nil
}

// ping bounds the startup check so a silent server fails fast.
func ping(ctx context.Context, check func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return check(ctx)
}
