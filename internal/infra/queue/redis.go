package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gapwatch/internal/domain"
	"gapwatch/internal/infra/metrics"
)

// RedisRefreshQueue реализует очередь задач на базе Redis lists.
type RedisRefreshQueue struct {
	client redis.UniversalClient
	key    string
}

var _ domain.RefreshQueue = (*RedisRefreshQueue)(nil)

// NewRedisRefreshQueue создаёт очередь по указанному ключу.
func NewRedisRefreshQueue(client redis.UniversalClient, key string) *RedisRefreshQueue {
	return &RedisRefreshQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisRefreshQueue) Enqueue(ctx context.Context, job domain.RefreshJob) error {
	payload, err := encodeJob(job)
	if err != nil {
		return err
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis_queue", "push", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Receive блокирующе читает задачу. Неуспешная обработка возвращает задачу в очередь.
func (q *RedisRefreshQueue) Receive(ctx context.Context) (domain.RefreshJob, domain.AckFunc, error) {
	payload, err := q.pop(ctx)
	if err != nil {
		return domain.RefreshJob{}, nil, err
	}
	job, err := decodeJob(payload)
	if err != nil {
		return domain.RefreshJob{}, nil, err
	}
	ack := func(success bool) error {
		if success {
			return nil
		}
		if err := q.client.RPush(context.Background(), q.key, payload).Err(); err != nil {
			return fmt.Errorf("requeue job: %w", err)
		}
		return nil
	}
	return job, ack, nil
}

func (q *RedisRefreshQueue) pop(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		if len(res) != 2 {
			return nil, errors.New("redis queue: unexpected response")
		}
		return []byte(res[1]), nil
	}
}
