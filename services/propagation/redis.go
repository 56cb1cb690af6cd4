package propagation

import (
	"context"
	"encoding/json"
	"fmt"

	"fastaid/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const redisChannelPrefix = "fastaid:changes:"

// RedisBus fans signals out over Redis pub/sub, one channel per subscription key.
type RedisBus struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisBus(client *redis.Client, logger *zap.Logger) *RedisBus {
	return &RedisBus{client: client, logger: logger}
}

func (b *RedisBus) Publish(ctx context.Context, signal models.ChangeSignal) error {
	payload, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("failed to encode signal: %w", err)
	}
	if err := b.client.Publish(ctx, redisChannelPrefix+signal.Key, payload).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, key string) (<-chan models.ChangeSignal, func(), error) {
	var pubsub *redis.PubSub
	if key == AllKeys {
		pubsub = b.client.PSubscribe(ctx, redisChannelPrefix+"*")
	} else {
		pubsub = b.client.Subscribe(ctx, redisChannelPrefix+key)
	}
	// Receive blocks until the subscription is confirmed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("redis subscribe failed: %w", err)
	}

	out := make(chan models.ChangeSignal, subscriberBuffer)
	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var signal models.ChangeSignal
				if err := json.Unmarshal([]byte(msg.Payload), &signal); err != nil {
					b.logger.Warn("Dropping malformed change signal", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- signal:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()
	return out, cancel, nil
}

// Close is a no-op; the Redis client is owned by utils.
func (b *RedisBus) Close() error {
	return nil
}
