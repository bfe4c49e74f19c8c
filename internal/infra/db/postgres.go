package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS stories (
	id            BIGSERIAL PRIMARY KEY,
	feed_id       TEXT        NOT NULL,
	sub_feed      TEXT        NOT NULL DEFAULT '',
	title         TEXT        NOT NULL,
	link          TEXT        NOT NULL DEFAULT '',
	description   TEXT        NOT NULL DEFAULT '',
	source        TEXT        NOT NULL DEFAULT '',
	topic         TEXT        NOT NULL DEFAULT '',
	published_at  TIMESTAMPTZ,
	published_raw TEXT        NOT NULL DEFAULT '',
	hash          TEXT        NOT NULL,
	fetched_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (feed_id, hash)
);
CREATE INDEX IF NOT EXISTS stories_feed_fetched_idx ON stories (feed_id, fetched_at);
`

// Connect создаёт пул подключений к Postgres.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 5
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Migrate создаёт таблицы, если их ещё нет.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("миграция схемы: %w", err)
	}
	return nil
}
