package propagation

import (
	"context"
	"sync"

	"fastaid/metrics"
	"fastaid/models"
)

const subscriberBuffer = 64

// MemoryBus is an in-process hub. A subscriber whose buffer is full misses the
// signal; receivers re-fetch state so a gap is recoverable.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySub]struct{}
	closed bool
}

type memorySub struct {
	ch   chan models.ChangeSignal
	once sync.Once
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[*memorySub]struct{})}
}

func (b *MemoryBus) Publish(_ context.Context, signal models.ChangeSignal) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	for _, key := range []string{signal.Key, AllKeys} {
		for sub := range b.subs[key] {
			select {
			case sub.ch <- signal:
			default:
				metrics.PropagationSignals.WithLabelValues("subscriber_full").Inc()
			}
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, key string) (<-chan models.ChangeSignal, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, nil, ErrBusClosed
	}
	sub := &memorySub{ch: make(chan models.ChangeSignal, subscriberBuffer)}
	if b.subs[key] == nil {
		b.subs[key] = make(map[*memorySub]struct{})
	}
	b.subs[key][sub] = struct{}{}

	cancel := func() {
		b.mu.Lock()
		delete(b.subs[key], sub)
		if len(b.subs[key]) == 0 {
			delete(b.subs, key)
		}
		b.mu.Unlock()
		sub.once.Do(func() { close(sub.ch) })
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return sub.ch, cancel, nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for key, subs := range b.subs {
		for sub := range subs {
			sub.once.Do(func() { close(sub.ch) })
		}
		delete(b.subs, key)
	}
	return nil
}
