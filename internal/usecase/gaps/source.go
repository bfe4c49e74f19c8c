package gaps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"gapwatch/internal/domain"
)

// StorySource поставляет согласованный снимок входных данных для пересчёта.
type StorySource interface {
	Reference(ctx context.Context) ([]domain.Story, error)
	OutletStories(ctx context.Context, outlets []domain.Outlet) ([]domain.OutletStories, error)
}

// StoreSource читает эталон из кеша, а заголовки изданий из репозитория.
type StoreSource struct {
	refs    domain.ReferenceStore
	stories domain.StoryRepo
	window  time.Duration
	log     zerolog.Logger
	now     func() time.Time
}

// NewStoreSource создаёт источник данных поверх хранилищ.
func NewStoreSource(refs domain.ReferenceStore, stories domain.StoryRepo, window time.Duration, logger zerolog.Logger) *StoreSource {
	return &StoreSource{refs: refs, stories: stories, window: window, log: logger, now: time.Now}
}

// Reference возвращает последний принятый эталонный список.
func (s *StoreSource) Reference(ctx context.Context) ([]domain.Story, error) {
	snapshot, err := s.refs.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return nil, domain.ErrEmptySnapshot
		}
		return nil, fmt.Errorf("загрузка эталона: %w", err)
	}
	if len(snapshot.Stories) == 0 {
		return nil, domain.ErrEmptySnapshot
	}
	return snapshot.Stories, nil
}

// OutletStories возвращает заголовки изданий за окно наблюдения.
// Ошибка по одному изданию не прерывает пересчёт.
func (s *StoreSource) OutletStories(ctx context.Context, outlets []domain.Outlet) ([]domain.OutletStories, error) {
	since := s.now().Add(-s.window)
	out := make([]domain.OutletStories, 0, len(outlets))
	for _, outlet := range outlets {
		stories, err := s.stories.ListStories(ctx, outlet.ID, since)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Error().Err(err).Str("outlet", outlet.ID).Msg("gaps: не удалось прочитать заголовки издания")
			stories = nil
		}
		out = append(out, domain.OutletStories{Outlet: outlet, Stories: stories})
	}
	return out, nil
}

// LiveSource использует готовый эталон и загружает ленты изданий напрямую.
type LiveSource struct {
	snapshot    domain.ReferenceSnapshot
	fetcher     domain.FeedFetcher
	log         zerolog.Logger
	concurrency int
}

// NewLiveSource создаёт источник для офлайн-запуска.
func NewLiveSource(snapshot domain.ReferenceSnapshot, fetcher domain.FeedFetcher, logger zerolog.Logger) *LiveSource {
	return &LiveSource{snapshot: snapshot, fetcher: fetcher, log: logger, concurrency: 4}
}

// Reference возвращает заранее загруженный эталон.
func (s *LiveSource) Reference(context.Context) ([]domain.Story, error) {
	if len(s.snapshot.Stories) == 0 {
		return nil, domain.ErrEmptySnapshot
	}
	return s.snapshot.Stories, nil
}

// OutletStories загружает ленты параллельно и сохраняет порядок изданий.
func (s *LiveSource) OutletStories(ctx context.Context, outlets []domain.Outlet) ([]domain.OutletStories, error) {
	out := make([]domain.OutletStories, len(outlets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, outlet := range outlets {
		i, outlet := i, outlet
		g.Go(func() error {
			stories, err := s.fetcher.Fetch(gctx, outlet)
			if err != nil {
				s.log.Warn().Err(err).Str("outlet", outlet.ID).Msg("gaps: лента издания недоступна")
			}
			out[i] = domain.OutletStories{Outlet: outlet, Stories: stories}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
