package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrOutletNotFound возвращается, если издания нет в таблице конфигурации.
	ErrOutletNotFound = errors.New("outlet not found")
	// ErrCacheMiss возвращается, если ключа нет в кеше.
	ErrCacheMiss = errors.New("cache miss")
	// ErrEmptySnapshot возвращается, если эталонный список ещё не загружен.
	ErrEmptySnapshot = errors.New("reference snapshot is empty")
)

// FeedFetcher загружает текущие заголовки издания.
type FeedFetcher interface {
	Fetch(ctx context.Context, outlet Outlet) ([]Story, error)
}

// StoryRepo хранит заголовки изданий между запусками сборщика.
type StoryRepo interface {
	SaveStories(ctx context.Context, outletID string, stories []Story) error
	ListStories(ctx context.Context, outletID string, since time.Time) ([]Story, error)
	DeleteStoriesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ReferenceStore хранит последний принятый эталонный список.
type ReferenceStore interface {
	Load(ctx context.Context) (ReferenceSnapshot, error)
	Save(ctx context.Context, snapshot ReferenceSnapshot) error
}

// OutletRegistry отдаёт таблицу изданий в порядке конфигурации.
type OutletRegistry interface {
	List(ctx context.Context) ([]Outlet, error)
	Enabled(ctx context.Context) ([]Outlet, error)
}

// OutletStateStore хранит флаги включения изданий, общие для всех процессов.
type OutletStateStore interface {
	OutletStates(ctx context.Context) (map[string]bool, error)
	SetOutletState(ctx context.Context, id string, enabled bool) error
}

// RevisionStore хранит номер ревизии входных данных.
// Номер растёт при каждом обновлении заголовков, эталона или таблицы изданий.
type RevisionStore interface {
	Revision(ctx context.Context) (int64, error)
	BumpRevision(ctx context.Context) (int64, error)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}
