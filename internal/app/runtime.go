package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"gapwatch/internal/adapters/reference"
	"gapwatch/internal/adapters/repo"
	"gapwatch/internal/infra/cache"
	"gapwatch/internal/infra/config"
	"gapwatch/internal/infra/db"
	"gapwatch/internal/usecase/gaps"
	"gapwatch/internal/usecase/outlets"
)

// Runtime связывает хранилища, реестр изданий и сессию пробелов одного процесса.
type Runtime struct {
	Pool       *pgxpool.Pool
	Redis      *redis.Client
	Cache      *cache.RedisCache
	Shared     *cache.SharedState
	Stories    *repo.Postgres
	References *reference.CacheStore
	Outlets    *outlets.Service
	Gaps       *gaps.Service
}

// New подключается к Postgres и Redis и собирает сервисы.
// Флаги изданий и ревизия данных общие для всех процессов через Redis;
// их изменение сбрасывает кеш пробелов.
func New(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (*Runtime, error) {
	outletList, err := config.LoadOutlets(cfg.Outlets.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("загрузка изданий: %w", err)
	}
	outletService, err := outlets.NewService(outletList)
	if err != nil {
		return nil, fmt.Errorf("реестр изданий: %w", err)
	}

	pool, err := db.Connect(ctx, cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("подключение к БД: %w", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("подключение к Redis: %w", err)
	}

	redisCache := cache.NewRedis(redisClient, "")
	shared := cache.NewSharedState(redisClient, "gapwatch:")
	outletService.UseSharedState(shared, shared)
	stories := repo.NewPostgres(pool)
	references := reference.NewCacheStore(redisCache, cfg.Reference.CacheKey, 0)
	source := gaps.NewStoreSource(references, stories, cfg.Limits.StoryWindow, logger)

	gapService := gaps.NewService(source, outletService, logger, cfg.Limits.TopGaps)
	gapService.UseRevisions(shared)
	gapService.SetHighlight(cfg.Features.Highlight)
	outletService.OnChange(gapService.Invalidate)

	return &Runtime{
		Pool:       pool,
		Redis:      redisClient,
		Cache:      redisCache,
		Shared:     shared,
		Stories:    stories,
		References: references,
		Outlets:    outletService,
		Gaps:       gapService,
	}, nil
}

// Close освобождает подключения.
func (r *Runtime) Close() {
	if r.Redis != nil {
		_ = r.Redis.Close()
	}
	if r.Pool != nil {
		r.Pool.Close()
	}
}
