package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fastaid/database/repository"
	"fastaid/models"
	"fastaid/services/propagation"
	"fastaid/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type recordedPush struct {
	token, title string
	data         map[string]string
}

type fakePusher struct {
	mu   sync.Mutex
	sent []recordedPush
	err  error
}

func (f *fakePusher) Push(_ context.Context, token, title, _ string, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, recordedPush{token: token, title: title, data: data})
	return nil
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	added chan struct{}
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
	select {
	case q.added <- struct{}{}:
	default:
	}
	return &asynq.TaskInfo{}, nil
}

func TestCompose(t *testing.T) {
	p, ok := Compose(models.ChangeSignal{Key: models.ResourceKey("r1"), Change: models.ChangeBookingCreated, EntityID: "b1"})
	if !ok || p.Target != TargetResource || p.TargetID != "r1" || p.EntityID != "b1" {
		t.Fatalf("unexpected payload %+v ok=%v", p, ok)
	}
	if _, ok := Compose(models.ChangeSignal{Key: models.ResourceKey("r1"), Change: models.ChangeResourceMoved}); ok {
		t.Fatalf("location updates should not page anyone")
	}
	if _, ok := Compose(models.ChangeSignal{Key: "garbage", Change: models.ChangeBookingCreated}); ok {
		t.Fatalf("malformed key should be ignored")
	}
}

func TestDeliverResolvesToken(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	store.Requesters.Create(ctx, &models.Requester{ID: "u1", FCMToken: "tok-u1"})
	store.Requesters.Create(ctx, &models.Requester{ID: "u2"})

	pusher := &fakePusher{}
	svc := NewPushService(store, pusher, zap.NewNop())

	if err := svc.Deliver(ctx, models.PushPayload{Target: TargetRequester, TargetID: "u1", Title: "hi", Change: models.ChangeBookingAccepted}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(pusher.sent) != 1 || pusher.sent[0].token != "tok-u1" || pusher.sent[0].data["role"] != TargetRequester {
		t.Fatalf("unexpected pushes %+v", pusher.sent)
	}

	if err := svc.Deliver(ctx, models.PushPayload{Target: TargetRequester, TargetID: "u2"}); err != nil {
		t.Fatalf("missing token should be skipped: %v", err)
	}
	if err := svc.Deliver(ctx, models.PushPayload{Target: TargetResource, TargetID: "ghost"}); err != nil {
		t.Fatalf("missing target should be skipped: %v", err)
	}
	if len(pusher.sent) != 1 {
		t.Fatalf("skipped deliveries must not push")
	}

	pusher.err = errors.New("fcm down")
	if err := svc.Deliver(ctx, models.PushPayload{Target: TargetRequester, TargetID: "u1"}); err == nil {
		t.Fatalf("send failure should be returned for retry")
	}
}

func TestSinkEnqueuesComposedSignals(t *testing.T) {
	bus := propagation.NewMemoryBus()
	queue := &fakeQueue{added: make(chan struct{}, 4)}
	sink := NewSink(bus, queue, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sink.Run(ctx) }()

	// wait for the subscription before publishing
	deadline := time.Now().Add(2 * time.Second)
	for {
		bus.Publish(ctx, models.ChangeSignal{Key: models.RequesterKey("u1"), Change: models.ChangeResourceMoved})
		bus.Publish(ctx, models.ChangeSignal{Key: models.RequesterKey("u1"), Change: models.ChangeBookingAccepted, EntityID: "b1"})
		select {
		case <-queue.added:
		case <-time.After(50 * time.Millisecond):
			if time.Now().After(deadline) {
				t.Fatalf("sink never enqueued")
			}
			continue
		}
		break
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	queue.mu.Lock()
	defer queue.mu.Unlock()
	p, err := tasks.ParsePushTask(queue.tasks[0])
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Change != models.ChangeBookingAccepted || p.TargetID != "u1" {
		t.Fatalf("unexpected task payload %+v", p)
	}
}
