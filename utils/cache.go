package utils

import (
	"context"
	"time"

	"fastaid/config"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

var (
	// CacheClient is the generic cache client (route estimates).
	CacheClient *redis.Client
	// PubSubClient carries change signals when PROPAGATION_BACKEND=redis.
	PubSubClient *redis.Client
)

func newRedisClient(db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       db,
	})
}

// InitCache initializes the generic Redis cache client.
func InitCache() {
	CacheClient = newRedisClient(config.AppConfig.RedisCacheDB)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := CacheClient.Ping(ctx).Result()
	if err != nil {
		GetLogger().Fatal("Failed to connect to Redis (Cache)", zap.Error(err))
	}
}

// GetCacheClient returns the generic cache client.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		InitCache()
	}
	return CacheClient
}

// InitPubSub initializes the Redis client used for change propagation.
func InitPubSub() {
	PubSubClient = newRedisClient(config.AppConfig.RedisPubSubDB)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := PubSubClient.Ping(ctx).Result()
	if err != nil {
		GetLogger().Fatal("Failed to connect to Redis (PubSub)", zap.Error(err))
	}
}

// GetPubSubClient returns the Redis client used for change propagation.
func GetPubSubClient() *redis.Client {
	if PubSubClient == nil {
		InitPubSub()
	}
	return PubSubClient
}
