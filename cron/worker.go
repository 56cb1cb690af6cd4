package cron

import (
	"context"
	"time"

	"fastaid/config"
	"fastaid/services/notification"
	"fastaid/services/tasks"
	"fastaid/utils"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// QueueRedisOpt is the asynq connection for the push queue.
func QueueRedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// InitPushWorker runs the push worker in the background and returns the
// server so the caller can shut it down.
func InitPushWorker(ctx context.Context, pushSvc notification.PushService) *asynq.Server {
	logger := utils.GetLogger()

	srv := asynq.NewServer(
		QueueRedisOpt(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeChangePush, HandlePushTask(pushSvc, logger))

	go monitorRedisConnection(ctx, logger)

	go func() {
		logger.Info("Starting push worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Start(mux); err != nil {
				logger.Error("Push worker failed to start",
					zap.Int("attempt", attempts),
					zap.Int("maxAttempts", maxAttempts),
					zap.Error(err))

				if attempts == maxAttempts {
					logger.Error("Push worker gave up; pushes stay queued until restart")
					return
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
	return srv
}

// HandlePushTask delivers one queued push. Undecodable payloads are dropped
// instead of retried.
func HandlePushTask(pushSvc notification.PushService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParsePushTask(task)
		if err != nil {
			logger.Error("Invalid push payload", zap.Error(err))
			return asynq.SkipRetry
		}

		if err := pushSvc.Deliver(ctx, p); err != nil {
			logger.Warn("Push delivery failed",
				zap.String("target", p.Target),
				zap.String("id", p.TargetID),
				zap.String("change", p.Change),
				zap.Error(err))
			return err
		}
		return nil
	}
}

// monitorRedisConnection pings the queue database until ctx is done.
func monitorRedisConnection(ctx context.Context, logger *zap.Logger) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer client.Close()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Ping(ctx).Err(); err != nil {
				logger.Warn("Push queue Redis connection lost", zap.Error(err))
			}
		}
	}
}
