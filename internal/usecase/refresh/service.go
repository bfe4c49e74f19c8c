package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"gapwatch/internal/domain"
)

// ReferenceUpdater обновляет сохранённый эталонный список.
type ReferenceUpdater interface {
	Update(ctx context.Context) (int, error)
}

// Options задаёт параметры цикла обновления.
type Options struct {
	Retention   time.Duration
	Concurrency int
}

// Service собирает ленты изданий, обновляет эталон и ставит задачу на пересчёт.
type Service struct {
	fetcher   domain.FeedFetcher
	stories   domain.StoryRepo
	reference ReferenceUpdater
	queue     domain.RefreshQueue
	outlets   domain.OutletRegistry
	revisions domain.RevisionStore
	opts      Options
	log       zerolog.Logger
	now       func() time.Time
}

// NewService создаёт сервис обновления. reference может быть nil, если эталон обновляется внешним процессом.
func NewService(fetcher domain.FeedFetcher, stories domain.StoryRepo, reference ReferenceUpdater, queue domain.RefreshQueue, outlets domain.OutletRegistry, opts Options, logger zerolog.Logger) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Service{
		fetcher:   fetcher,
		stories:   stories,
		reference: reference,
		queue:     queue,
		outlets:   outlets,
		opts:      opts,
		log:       logger.With().Str("component", "refresh").Logger(),
		now:       time.Now,
	}
}

// UseRevisions подключает общий номер ревизии; каждый цикл его увеличивает,
// чтобы процессы с кешем пробелов пересчитали список.
func (s *Service) UseRevisions(store domain.RevisionStore) {
	s.revisions = store
}

// Run выполняет один цикл обновления и возвращает поставленную задачу.
// Ошибки отдельных изданий и отклонённый эталон не прерывают цикл.
func (s *Service) Run(ctx context.Context, cause domain.RefreshCause) (domain.RefreshJob, error) {
	collected, err := s.collect(ctx)
	if err != nil {
		return domain.RefreshJob{}, err
	}

	referenceCount := 0
	if s.reference != nil {
		n, err := s.reference.Update(ctx)
		switch {
		case err == nil:
			referenceCount = n
		case errors.Is(err, context.Canceled):
			return domain.RefreshJob{}, err
		default:
			s.log.Warn().Err(err).Msg("refresh: эталонный список не обновлён, используется сохранённый")
		}
	}

	if s.opts.Retention > 0 {
		removed, err := s.stories.DeleteStoriesBefore(ctx, s.now().Add(-s.opts.Retention))
		if err != nil {
			s.log.Error().Err(err).Msg("refresh: не удалось удалить устаревшие заголовки")
		} else if removed > 0 {
			s.log.Info().Int64("removed", removed).Msg("refresh: удалены устаревшие заголовки")
		}
	}

	if s.revisions != nil {
		if _, err := s.revisions.BumpRevision(ctx); err != nil {
			s.log.Error().Err(err).Msg("refresh: не удалось обновить ревизию данных")
		}
	}

	job := domain.RefreshJob{
		ID:             uuid.NewString(),
		Cause:          cause,
		RequestedAt:    s.now().UTC(),
		ReferenceCount: referenceCount,
		OutletStories:  collected,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return domain.RefreshJob{}, fmt.Errorf("постановка задачи пересчёта: %w", err)
	}
	s.log.Info().
		Str("job_id", job.ID).
		Str("cause", string(cause)).
		Int("reference", referenceCount).
		Int("outlet_stories", collected).
		Msg("refresh: задача пересчёта поставлена")
	return job, nil
}

// collect загружает ленты включённых изданий и возвращает число сохранённых заголовков.
func (s *Service) collect(ctx context.Context) (int, error) {
	enabled, err := s.outlets.Enabled(ctx)
	if err != nil {
		return 0, fmt.Errorf("таблица изданий: %w", err)
	}
	var (
		mu    sync.Mutex
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, outlet := range enabled {
		outlet := outlet
		g.Go(func() error {
			stories, err := s.fetcher.Fetch(gctx, outlet)
			if err != nil {
				s.log.Warn().Err(err).Str("outlet", outlet.ID).Msg("refresh: издание пропущено")
				return nil
			}
			if err := s.stories.SaveStories(gctx, outlet.ID, stories); err != nil {
				s.log.Error().Err(err).Str("outlet", outlet.ID).Msg("refresh: не удалось сохранить заголовки")
				return nil
			}
			mu.Lock()
			total += len(stories)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return total, nil
}
