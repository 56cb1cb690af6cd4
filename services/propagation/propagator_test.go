package propagation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fastaid/models"

	"go.uber.org/zap"
)

func receive(t *testing.T, ch <-chan models.ChangeSignal) models.ChangeSignal {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed")
		}
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for signal")
	}
	return models.ChangeSignal{}
}

func TestPropagatorDeliversByKey(t *testing.T) {
	bus := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mine, _, err := bus.Subscribe(ctx, models.RequesterKey("u1"))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	all, _, _ := bus.Subscribe(ctx, AllKeys)

	p := NewPropagator(bus, 2, 16, zap.NewNop())
	p.Start()
	defer p.Stop()

	b := &models.Booking{ID: "b1", RequesterID: "u1", ResourceID: "r1"}
	p.Notify(BookingSignals(b, models.ChangeBookingAccepted)...)

	got := receive(t, mine)
	if got.EntityID != "b1" || got.Change != models.ChangeBookingAccepted {
		t.Fatalf("unexpected signal: %+v", got)
	}

	seen := map[string]bool{}
	seen[receive(t, all).Key] = true
	seen[receive(t, all).Key] = true
	if !seen["requester:u1"] || !seen["resource:r1"] {
		t.Fatalf("wildcard subscriber missed a key: %v", seen)
	}
}

type blockingBus struct {
	release chan struct{}
}

func (b *blockingBus) Publish(ctx context.Context, _ models.ChangeSignal) error {
	<-b.release
	return nil
}
func (b *blockingBus) Subscribe(context.Context, string) (<-chan models.ChangeSignal, func(), error) {
	return nil, nil, errors.New("not supported")
}
func (b *blockingBus) Close() error { return nil }

func TestNotifyNeverBlocks(t *testing.T) {
	bus := &blockingBus{release: make(chan struct{})}
	p := NewPropagator(bus, 1, 1, zap.NewNop())
	p.Start()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			p.Notify(ResourceSignal("r1", models.ChangeResourceAvailable))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Notify blocked on a full queue")
	}
	close(bus.release)
	p.Stop()
}

type flakyBus struct {
	mu    sync.Mutex
	fails int
	calls int
}

func (b *flakyBus) Publish(context.Context, models.ChangeSignal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.calls <= b.fails {
		return errors.New("broker unavailable")
	}
	return nil
}
func (b *flakyBus) Subscribe(context.Context, string) (<-chan models.ChangeSignal, func(), error) {
	return nil, nil, errors.New("not supported")
}
func (b *flakyBus) Close() error { return nil }

func TestPublishRetriesBounded(t *testing.T) {
	bus := &flakyBus{fails: 2}
	p := NewPropagator(bus, 1, 4, zap.NewNop())
	p.backoff = time.Millisecond
	p.Start()
	p.Notify(ResourceSignal("r1", models.ChangeResourceAvailable))
	p.Stop()

	if bus.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", bus.calls)
	}

	always := &flakyBus{fails: 100}
	p = NewPropagator(always, 1, 4, zap.NewNop())
	p.backoff = time.Millisecond
	p.Start()
	p.Notify(ResourceSignal("r1", models.ChangeResourceAvailable))
	p.Stop()
	if always.calls != publishAttempts {
		t.Fatalf("expected %d attempts, got %d", publishAttempts, always.calls)
	}
}

func TestMemoryBusCancelClosesChannel(t *testing.T) {
	bus := NewMemoryBus()
	ch, cancel, err := bus.Subscribe(context.Background(), "resource:r1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after cancel")
	}
	if err := bus.Publish(context.Background(), ResourceSignal("r1", models.ChangeResourceMoved)); err != nil {
		t.Fatalf("publish after unsubscribe: %v", err)
	}
}
