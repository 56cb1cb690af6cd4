package tasks

import (
	"encoding/json"
	"time"

	"fastaid/models"

	"github.com/hibiken/asynq"
)

const TypeChangePush = "change:push"

const (
	pushMaxRetry = 5
	pushTimeout  = 15 * time.Second
)

// NewPushTask wraps a push payload for the worker queue.
func NewPushTask(payload models.PushPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeChangePush, b)
	opts := []asynq.Option{
		asynq.MaxRetry(pushMaxRetry),
		asynq.Timeout(pushTimeout),
	}
	return task, opts, nil
}

// ParsePushTask decodes a task created by NewPushTask.
func ParsePushTask(task *asynq.Task) (models.PushPayload, error) {
	var p models.PushPayload
	err := json.Unmarshal(task.Payload(), &p)
	return p, err
}
