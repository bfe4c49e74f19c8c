package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrInvalidTimezone возвращается, если указан некорректный часовой пояс.
var ErrInvalidTimezone = errors.New("invalid timezone")

// Job выполняется планировщиком с контекстом запуска.
type Job func(ctx context.Context) error

// Service запускает периодические задачи по cron-выражениям.
type Service struct {
	cron *cron.Cron
	log  zerolog.Logger
	ctx  context.Context
	loc  *time.Location
}

// NewService создаёт планировщик в указанном часовом поясе.
func NewService(timezone string, logger zerolog.Logger) (*Service, error) {
	normalized, err := NormalizeTimezone(timezone)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(normalized)
	if err != nil {
		return nil, fmt.Errorf("загрузка часового пояса: %w", err)
	}
	adapter := cronLogger{log: logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)
	return &Service{cron: c, log: logger, ctx: context.Background(), loc: loc}, nil
}

// Location возвращает часовой пояс планировщика.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Add регистрирует задачу. Ошибки задачи логируются и не останавливают расписание.
func (s *Service) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		if err := job(s.ctx); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("scheduler: задача завершилась с ошибкой")
			return
		}
		s.log.Info().Str("job", name).Dur("duration", time.Since(start)).Msg("scheduler: задача выполнена")
	})
	if err != nil {
		return fmt.Errorf("cron-выражение %q: %w", spec, err)
	}
	return nil
}

// Run запускает расписание и блокируется до отмены контекста.
func (s *Service) Run(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	<-ctx.Done()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

// ValidateSpec проверяет cron-выражение из пяти полей.
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("cron-выражение %q: %w", spec, err)
	}
	return nil
}

// NextRun возвращает время ближайшего запуска после from.
func NextRun(spec string, from time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("cron-выражение %q: %w", spec, err)
	}
	return sched.Next(from), nil
}

type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

// NormalizeTimezone приводит название часового пояса к виду IANA.
func NormalizeTimezone(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", ErrInvalidTimezone
	}
	candidate = strings.ReplaceAll(candidate, " ", "_")
	if _, err := time.LoadLocation(candidate); err == nil {
		return candidate, nil
	}

	lower := strings.ToLower(candidate)
	parts := strings.Split(lower, "/")
	for i, part := range parts {
		segments := strings.Split(part, "_")
		for j, segment := range segments {
			pieces := strings.Split(segment, "-")
			for k, piece := range pieces {
				if piece == "" {
					continue
				}
				pieces[k] = strings.ToUpper(piece[:1]) + piece[1:]
			}
			segments[j] = strings.Join(pieces, "-")
		}
		parts[i] = strings.Join(segments, "_")
	}
	normalized := strings.Join(parts, "/")
	if _, err := time.LoadLocation(normalized); err == nil {
		return normalized, nil
	}
	return "", ErrInvalidTimezone
}
