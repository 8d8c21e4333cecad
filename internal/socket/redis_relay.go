package socket

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRelay shares hub traffic between server instances over Redis pub/sub.
type RedisRelay struct {
	rdb    *redis.Client
	prefix string
	log    *zap.Logger
}

func NewRedisRelay(rdb *redis.Client, prefix string, log *zap.Logger) *RedisRelay {
	return &RedisRelay{rdb: rdb, prefix: prefix, log: log}
}

func (r *RedisRelay) Publish(ctx context.Context, topic string, data []byte) error {
	return r.rdb.Publish(ctx, r.prefix+topic, data).Err()
}

// Listen delivers every relayed vehicle message to hub until ctx is done.
func (r *RedisRelay) Listen(ctx context.Context, hub *Hub) {
	pubsub := r.rdb.PSubscribe(ctx, r.prefix+"vehicle_*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			topic := strings.TrimPrefix(msg.Channel, r.prefix)
			hub.Deliver(topic, []byte(msg.Payload))
		}
	}
}
