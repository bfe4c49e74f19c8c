package reference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gapwatch/internal/domain"
	"gapwatch/internal/infra/metrics"
)

// CacheStore хранит последний принятый снимок в кеше.
type CacheStore struct {
	cache domain.Cache
	key   string
	ttl   time.Duration
	now   func() time.Time
}

var _ domain.ReferenceStore = (*CacheStore)(nil)

// NewCacheStore создаёт хранилище снимков. Нулевой ttl означает хранение без срока.
func NewCacheStore(cache domain.Cache, key string, ttl time.Duration) *CacheStore {
	return &CacheStore{cache: cache, key: key, ttl: ttl, now: time.Now}
}

// Load возвращает сохранённый снимок или domain.ErrCacheMiss.
func (s *CacheStore) Load(ctx context.Context) (domain.ReferenceSnapshot, error) {
	data, err := s.cache.Get(ctx, s.key)
	if err != nil {
		return domain.ReferenceSnapshot{}, err
	}
	return Decode(data, s.now())
}

// Save сохраняет снимок.
func (s *CacheStore) Save(ctx context.Context, snapshot domain.ReferenceSnapshot) error {
	data, err := Encode(snapshot)
	if err != nil {
		return fmt.Errorf("сериализация эталонного списка: %w", err)
	}
	return s.cache.Set(ctx, s.key, data, s.ttl)
}

// Accept сохраняет новый снимок, если он проходит защиту от усечения.
// При отказе сохранённый снимок остаётся прежним и возвращается ErrSnapshotRejected.
func Accept(ctx context.Context, store domain.ReferenceStore, incoming domain.ReferenceSnapshot, minStories int) error {
	existing := 0
	current, err := store.Load(ctx)
	switch {
	case err == nil:
		existing = len(current.Stories)
	case errors.Is(err, domain.ErrCacheMiss):
	default:
		return fmt.Errorf("чтение сохранённого эталона: %w", err)
	}
	if err := CheckReplacement(existing, len(incoming.Stories), minStories); err != nil {
		metrics.ReferenceRejected.Inc()
		return err
	}
	if incoming.CachedAt.IsZero() {
		incoming.CachedAt = time.Now().UTC()
	}
	if err := store.Save(ctx, incoming); err != nil {
		return fmt.Errorf("сохранение эталона: %w", err)
	}
	metrics.ReferenceStories.Set(float64(len(incoming.Stories)))
	return nil
}

// Updater загружает свежий снимок и сохраняет его через Accept.
type Updater struct {
	loader     *Loader
	store      domain.ReferenceStore
	location   string
	minStories int
}

// NewUpdater создаёт обновитель эталонного списка.
func NewUpdater(loader *Loader, store domain.ReferenceStore, location string, minStories int) *Updater {
	return &Updater{loader: loader, store: store, location: location, minStories: minStories}
}

// Update возвращает число сюжетов в принятом снимке.
func (u *Updater) Update(ctx context.Context) (int, error) {
	snapshot, err := u.loader.Load(ctx, u.location)
	if err != nil {
		return 0, err
	}
	if err := Accept(ctx, u.store, snapshot, u.minStories); err != nil {
		return 0, err
	}
	return len(snapshot.Stories), nil
}
