package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisNotifier публикует события в Redis pub/sub, канал = имя топика.
// Ошибки публикации только логируются: уведомления best-effort,
// потребители сверяются с БД при переподключении.
type RedisNotifier struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisNotifier(client *redis.Client, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, logger: logger}
}

func (n *RedisNotifier) Publish(ctx context.Context, topic, event string, payload any) {
	envelope := NewEnvelope(event, payload)

	data, err := json.Marshal(envelope)
	if err != nil {
		n.logger.Error("Failed to marshal notification",
			zap.String("topic", topic),
			zap.String("event", event),
			zap.Error(err))
		return
	}

	if err := n.client.Publish(ctx, topic, data).Err(); err != nil {
		n.logger.Warn("Failed to publish notification",
			zap.String("topic", topic),
			zap.String("event", event),
			zap.Error(err))
	}
}
