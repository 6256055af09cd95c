package push

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"social-sync/internal/domain"
)

const sourceRedis = "redis"

// RedisChannel получает те же кадры из Redis pub/sub по каналу <prefix>:<userId>.
type RedisChannel struct {
	*channel
	client *redis.Client
	prefix string
}

// NewRedisChannel создаёт канал поверх Redis pub/sub.
func NewRedisChannel(client *redis.Client, prefix string, settings Settings, logger zerolog.Logger) (*RedisChannel, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if prefix == "" {
		prefix = "push"
	}
	base := newChannel(sourceRedis, settings, logger.With().Str("source", sourceRedis).Logger())
	c := &RedisChannel{channel: base, client: client, prefix: prefix}
	base.session = c.serve
	return c, nil
}

// Topic возвращает имя pub/sub канала пользователя.
func (c *RedisChannel) Topic(userID string) string {
	return c.prefix + ":" + userID
}

func (c *RedisChannel) serve(ctx context.Context, userID string, established func()) error {
	topic := c.Topic(userID)
	sub := c.client.Subscribe(ctx, topic)
	defer sub.Close()
	stop := context.AfterFunc(ctx, func() { _ = sub.Close() })
	defer stop()

	if _, err := sub.ReceiveTimeout(ctx, c.settings.HandshakeTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	established()

	// sub.Channel() молча переподключается, поэтому обрыв ловим сами: читаем напрямую и пингуем в тишине.
	awaitingPong := false
	for {
		msg, err := sub.ReceiveTimeout(ctx, c.settings.PingInterval)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if !isTimeout(err) {
				return fmt.Errorf("receive %s: %w", topic, err)
			}
			if awaitingPong {
				return fmt.Errorf("redis не ответил на ping за %s", c.settings.PingInterval)
			}
			if err := sub.Ping(ctx); err != nil {
				return fmt.Errorf("ping %s: %w", topic, err)
			}
			awaitingPong = true
			continue
		}
		awaitingPong = false
		if m, ok := msg.(*redis.Message); ok {
			c.handleFrame([]byte(m.Payload))
		}
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var _ domain.PushChannel = (*RedisChannel)(nil)
