package outlets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"gapwatch/internal/domain"
)

var (
	ErrOutletIDInvalid = errors.New("некорректный идентификатор издания")
	ErrDuplicateOutlet = errors.New("издание уже есть в таблице")
	ErrNoFeeds         = errors.New("у издания нет лент")
	ErrFeedURLInvalid  = errors.New("некорректный адрес ленты")
	ErrNameEmpty       = errors.New("не указано название издания")
)

var idRegex = regexp.MustCompile(`^[a-z0-9_-]{2,32}$`)

// Service хранит таблицу изданий и уведомляет подписчиков об изменениях.
// С общим состоянием флаги включения читаются из него и перекрывают конфигурацию.
type Service struct {
	mu        sync.RWMutex
	outlets   []domain.Outlet
	listeners []func()
	states    domain.OutletStateStore
	revisions domain.RevisionStore
}

var _ domain.OutletRegistry = (*Service)(nil)

// NewService проверяет таблицу и создаёт сервис изданий.
func NewService(outlets []domain.Outlet) (*Service, error) {
	normalized := make([]domain.Outlet, 0, len(outlets))
	for _, o := range outlets {
		o.Feeds = NormalizeFeeds(o.Feeds)
		normalized = append(normalized, o)
	}
	if err := Validate(normalized); err != nil {
		return nil, err
	}
	return &Service{outlets: normalized}, nil
}

// ParseOutletID приводит ввод пользователя к идентификатору издания.
func ParseOutletID(input string) (string, error) {
	trim := strings.ToLower(strings.TrimSpace(input))
	trim = strings.TrimLeft(trim, "@/")
	if !idRegex.MatchString(trim) {
		return "", ErrOutletIDInvalid
	}
	return trim, nil
}

// Validate проверяет таблицу изданий.
func Validate(outlets []domain.Outlet) error {
	seen := make(map[string]struct{}, len(outlets))
	for _, o := range outlets {
		if !idRegex.MatchString(o.ID) {
			return fmt.Errorf("%w: %q", ErrOutletIDInvalid, o.ID)
		}
		if _, ok := seen[o.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateOutlet, o.ID)
		}
		seen[o.ID] = struct{}{}
		if strings.TrimSpace(o.Name) == "" {
			return fmt.Errorf("%w: %s", ErrNameEmpty, o.ID)
		}
		if len(o.Feeds) == 0 {
			return fmt.Errorf("%w: %s", ErrNoFeeds, o.ID)
		}
		for _, f := range o.Feeds {
			u, err := url.Parse(f.URL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("%w: %s %q", ErrFeedURLInvalid, o.ID, f.URL)
			}
		}
	}
	return nil
}

// NormalizeFeeds удаляет пустые и дублирующиеся ленты, сохраняя порядок.
func NormalizeFeeds(feeds []domain.Feed) []domain.Feed {
	seen := make(map[string]struct{}, len(feeds))
	cleaned := make([]domain.Feed, 0, len(feeds))
	for _, feed := range feeds {
		u := strings.TrimSpace(feed.URL)
		if u == "" {
			continue
		}
		key := strings.ToLower(u)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, domain.Feed{Label: strings.TrimSpace(feed.Label), URL: u})
	}
	return cleaned
}

// UseSharedState подключает общее для процессов хранилище флагов.
// revisions может быть nil; иначе каждое изменение флага увеличивает ревизию данных.
func (s *Service) UseSharedState(states domain.OutletStateStore, revisions domain.RevisionStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = states
	s.revisions = revisions
}

// List возвращает копию таблицы в порядке конфигурации.
func (s *Service) List(ctx context.Context) ([]domain.Outlet, error) {
	return s.snapshot(ctx)
}

// Enabled возвращает включённые издания в порядке конфигурации.
func (s *Service) Enabled(ctx context.Context) ([]domain.Outlet, error) {
	list, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	enabled := list[:0]
	for _, o := range list {
		if o.Enabled {
			enabled = append(enabled, o)
		}
	}
	return enabled, nil
}

// Get возвращает издание по идентификатору.
func (s *Service) Get(ctx context.Context, id string) (domain.Outlet, error) {
	list, err := s.snapshot(ctx)
	if err != nil {
		return domain.Outlet{}, err
	}
	for _, o := range list {
		if o.ID == id {
			return o, nil
		}
	}
	return domain.Outlet{}, domain.ErrOutletNotFound
}

// SetEnabled включает или выключает издание. Подписчики вызываются только при изменении.
func (s *Service) SetEnabled(ctx context.Context, id string, enabled bool) (domain.Outlet, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return domain.Outlet{}, err
	}

	s.mu.RLock()
	states, revisions := s.states, s.revisions
	s.mu.RUnlock()
	if states != nil {
		if err := states.SetOutletState(ctx, id, enabled); err != nil {
			return domain.Outlet{}, fmt.Errorf("сохранение флага издания: %w", err)
		}
	}

	s.mu.Lock()
	for i := range s.outlets {
		if s.outlets[i].ID == id {
			s.outlets[i].Enabled = enabled
		}
	}
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	changed := current.Enabled != enabled
	current.Enabled = enabled
	if !changed {
		return current, nil
	}
	for _, fn := range listeners {
		fn()
	}
	if revisions != nil {
		if _, err := revisions.BumpRevision(ctx); err != nil {
			return current, fmt.Errorf("обновление ревизии: %w", err)
		}
	}
	return current, nil
}

// OnChange регистрирует обработчик изменения таблицы.
func (s *Service) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Service) snapshot(ctx context.Context) ([]domain.Outlet, error) {
	s.mu.RLock()
	list := make([]domain.Outlet, 0, len(s.outlets))
	for _, o := range s.outlets {
		list = append(list, cloneOutlet(o))
	}
	states := s.states
	s.mu.RUnlock()

	if states == nil {
		return list, nil
	}
	flags, err := states.OutletStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("флаги изданий: %w", err)
	}
	for i := range list {
		if on, ok := flags[list[i].ID]; ok {
			list[i].Enabled = on
		}
	}
	return list, nil
}

func cloneOutlet(o domain.Outlet) domain.Outlet {
	o.Feeds = append([]domain.Feed(nil), o.Feeds...)
	return o
}
