package cache

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"

	"gapwatch/internal/domain"
)

// SharedState хранит в Redis флаги изданий и номер ревизии входных данных.
type SharedState struct {
	client      redis.UniversalClient
	outletsKey  string
	revisionKey string
}

var (
	_ domain.OutletStateStore = (*SharedState)(nil)
	_ domain.RevisionStore    = (*SharedState)(nil)
)

// NewSharedState создаёт общее состояние. Префикс добавляется к обоим ключам.
func NewSharedState(client redis.UniversalClient, prefix string) *SharedState {
	return &SharedState{
		client:      client,
		outletsKey:  prefix + "outlets:enabled",
		revisionKey: prefix + "revision",
	}
}

// OutletStates возвращает флаги изданий, заданные администраторами.
func (s *SharedState) OutletStates(ctx context.Context) (map[string]bool, error) {
	raw, err := s.client.HGetAll(ctx, s.outletsKey).Result()
	if err != nil {
		return nil, err
	}
	states := make(map[string]bool, len(raw))
	for id, v := range raw {
		on, err := strconv.ParseBool(v)
		if err != nil {
			continue
		}
		states[id] = on
	}
	return states, nil
}

// SetOutletState сохраняет флаг издания.
func (s *SharedState) SetOutletState(ctx context.Context, id string, enabled bool) error {
	return s.client.HSet(ctx, s.outletsKey, id, strconv.FormatBool(enabled)).Err()
}

// Revision возвращает текущий номер ревизии; отсутствующий ключ означает ноль.
func (s *SharedState) Revision(ctx context.Context) (int64, error) {
	rev, err := s.client.Get(ctx, s.revisionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return rev, err
}

// BumpRevision увеличивает номер ревизии.
func (s *SharedState) BumpRevision(ctx context.Context) (int64, error) {
	return s.client.Incr(ctx, s.revisionKey).Result()
}
