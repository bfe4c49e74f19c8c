package gaps

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"gapwatch/internal/domain"
	"gapwatch/internal/infra/metrics"
)

// rebuildTimeout ограничивает общий пересчёт, который не зависит от отмены запроса.
const rebuildTimeout = 2 * time.Minute

// Service хранит последний ранжированный список пробелов и пересчитывает его целиком.
// Читатели всегда видят либо прежний, либо новый снимок.
type Service struct {
	source    StorySource
	outlets   domain.OutletRegistry
	revisions domain.RevisionStore
	log       zerolog.Logger
	topN      int
	now       func() time.Time

	current    atomic.Pointer[domain.RankedGapList]
	highlight  atomic.Bool
	mu         sync.Mutex
	generation uint64
	revision   int64
	flight     singleflight.Group
}

// NewService создаёт сессию пересчёта пробелов.
func NewService(source StorySource, outlets domain.OutletRegistry, logger zerolog.Logger, topN int) *Service {
	if topN <= 0 {
		topN = MembershipTopN
	}
	return &Service{
		source:  source,
		outlets: outlets,
		log:     logger.With().Str("component", "gaps").Logger(),
		topN:    topN,
		now:     time.Now,
	}
}

// UseRevisions подключает общий номер ревизии входных данных.
// Когда другой процесс его увеличивает, кеш сбрасывается при следующем обращении.
func (s *Service) UseRevisions(store domain.RevisionStore) {
	s.revisions = store
}

// Rebuild загружает входные данные, пересчитывает список и атомарно подменяет кеш.
// Пересчёт общий для одновременных вызовов, поэтому отмена одного запроса его не прерывает.
func (s *Service) Rebuild(ctx context.Context) (domain.RankedGapList, error) {
	s.syncRevision(ctx)
	gen := s.currentGeneration()
	v, err, _ := s.flight.Do("rebuild:"+strconv.FormatUint(gen, 10), func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rebuildTimeout)
		defer cancel()
		return s.rebuild(rctx, gen)
	})
	if err != nil {
		return domain.RankedGapList{}, err
	}
	return v.(domain.RankedGapList), nil
}

// Ranked возвращает закешированный список или строит его при первом обращении.
func (s *Service) Ranked(ctx context.Context) (domain.RankedGapList, error) {
	s.syncRevision(ctx)
	if list := s.current.Load(); list != nil {
		return *list, nil
	}
	return s.Rebuild(ctx)
}

// Cached возвращает текущий снимок без пересчёта.
func (s *Service) Cached() (domain.RankedGapList, bool) {
	list := s.current.Load()
	if list == nil {
		return domain.RankedGapList{}, false
	}
	return *list, true
}

// Invalidate сбрасывает кеш; следующий запрос выполнит полный пересчёт.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.generation++
	s.current.Store(nil)
	s.mu.Unlock()
}

// SetHighlight включает или выключает отметку заголовков-пробелов.
func (s *Service) SetHighlight(on bool) {
	if s.highlight.Swap(on) != on {
		s.Invalidate()
	}
}

// HighlightEnabled сообщает, включена ли отметка заголовков.
func (s *Service) HighlightEnabled() bool {
	return s.highlight.Load()
}

// IsGapTitle проверяет заголовок по верхним группам списка.
// При выключенной отметке всегда возвращает false.
func (s *Service) IsGapTitle(ctx context.Context, title string) (bool, error) {
	if !s.highlight.Load() {
		return false, nil
	}
	list, err := s.Ranked(ctx)
	if err != nil {
		return false, err
	}
	gap := IsGap(title, list.Top(s.topN))
	metrics.ObserveMembership(gap)
	return gap, nil
}

func (s *Service) rebuild(ctx context.Context, gen uint64) (domain.RankedGapList, error) {
	start := time.Now()
	reference, err := s.source.Reference(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("gaps: эталонный список недоступен")
		return domain.RankedGapList{}, fmt.Errorf("эталонный список: %w", err)
	}
	enabled, err := s.outlets.Enabled(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("gaps: таблица изданий недоступна")
		return domain.RankedGapList{}, fmt.Errorf("таблица изданий: %w", err)
	}
	outletStories, err := s.source.OutletStories(ctx, enabled)
	if err != nil {
		s.log.Error().Err(err).Msg("gaps: заголовки изданий недоступны")
		return domain.RankedGapList{}, fmt.Errorf("заголовки изданий: %w", err)
	}

	list := Compute(reference, outletStories, s.now().UTC())
	s.store(gen, &list)

	duration := time.Since(start)
	metrics.ObserveGapBuild(duration, len(list.Groups), list.GapCount)
	s.log.Info().
		Int("reference", list.ReferenceCount).
		Int("outlet_stories", list.OutletStoryCount).
		Int("eligible", list.EligibleCount).
		Int("gaps", list.GapCount).
		Int("groups", len(list.Groups)).
		Dur("duration", duration).
		Msg("gaps: список пересчитан")
	return list, nil
}

func (s *Service) store(gen uint64, list *domain.RankedGapList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return
	}
	s.current.Store(list)
}

// syncRevision сбрасывает кеш, если ревизия входных данных изменилась.
// При недоступном хранилище остаётся прежний снимок.
func (s *Service) syncRevision(ctx context.Context) {
	if s.revisions == nil {
		return
	}
	rev, err := s.revisions.Revision(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("gaps: ревизия данных недоступна")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rev == s.revision {
		return
	}
	s.revision = rev
	s.generation++
	s.current.Store(nil)
}

func (s *Service) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}
