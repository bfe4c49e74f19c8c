package queue

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"gapwatch/internal/domain"
)

// Open создаёт очередь выбранного драйвера и функцию её закрытия.
func Open(driver string, redisClient redis.UniversalClient, amqpURL, key string) (domain.RefreshQueue, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "redis":
		if redisClient == nil {
			return nil, nil, fmt.Errorf("redis queue: клиент не задан")
		}
		return NewRedisRefreshQueue(redisClient, key), func() error { return nil }, nil
	case "rabbitmq", "amqp":
		q, err := NewRabbitRefreshQueue(amqpURL, key)
		if err != nil {
			return nil, nil, err
		}
		return q, q.Close, nil
	default:
		return nil, nil, fmt.Errorf("неизвестный драйвер очереди %q", driver)
	}
}
