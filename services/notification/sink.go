package notification

import (
	"context"

	"fastaid/models"
	"fastaid/services/propagation"
	"fastaid/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Enqueuer is the part of *asynq.Client the sink needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Sink listens to every change signal and queues a push task for the ones
// worth a notification. Every instance runs a sink, so a signal may be
// pushed more than once.
type Sink struct {
	Bus    propagation.Bus
	Queue  Enqueuer
	Logger *zap.Logger
}

func NewSink(bus propagation.Bus, queue Enqueuer, logger *zap.Logger) *Sink {
	return &Sink{Bus: bus, Queue: queue, Logger: logger}
}

// Run blocks until ctx is done or the bus closes the subscription.
func (s *Sink) Run(ctx context.Context) error {
	signals, cancel, err := s.Bus.Subscribe(ctx, propagation.AllKeys)
	if err != nil {
		return err
	}
	defer cancel()

	s.Logger.Info("Push sink listening for changes")
	for {
		select {
		case <-ctx.Done():
			return nil
		case signal, ok := <-signals:
			if !ok {
				return nil
			}
			s.handle(ctx, signal)
		}
	}
}

func (s *Sink) handle(ctx context.Context, signal models.ChangeSignal) {
	payload, ok := Compose(signal)
	if !ok {
		return
	}
	task, opts, err := tasks.NewPushTask(payload)
	if err != nil {
		s.Logger.Error("Failed to build push task", zap.Error(err))
		return
	}
	if _, err := s.Queue.EnqueueContext(ctx, task, opts...); err != nil {
		s.Logger.Error("Failed to enqueue push task",
			zap.String("key", signal.Key),
			zap.String("change", signal.Change),
			zap.Error(err))
	}
}
