package propagation

import (
	"context"
	"sync"
	"time"

	"fastaid/metrics"
	"fastaid/models"

	"go.uber.org/zap"
)

const (
	publishAttempts = 3
	publishTimeout  = 2 * time.Second
)

// Propagator queues signals and publishes them on a Bus from a fixed pool of
// workers. Notify never blocks; when the queue is full the signal is dropped.
type Propagator struct {
	bus     Bus
	queue   chan models.ChangeSignal
	workers int
	logger  *zap.Logger
	backoff time.Duration

	wg       sync.WaitGroup
	stopOnce sync.Once
	mu       sync.RWMutex
	stopped  bool
}

func NewPropagator(bus Bus, workers, queueSize int, logger *zap.Logger) *Propagator {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Propagator{
		bus:     bus,
		queue:   make(chan models.ChangeSignal, queueSize),
		workers: workers,
		logger:  logger,
		backoff: 100 * time.Millisecond,
	}
}

// Start launches the workers.
func (p *Propagator) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	p.logger.Info("Change propagator started", zap.Int("workers", p.workers), zap.Int("queue", cap(p.queue)))
}

// Notify enqueues signals for publication.
func (p *Propagator) Notify(signals ...models.ChangeSignal) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return
	}
	for _, s := range signals {
		if s.At.IsZero() {
			s.At = time.Now()
		}
		select {
		case p.queue <- s:
		default:
			metrics.PropagationSignals.WithLabelValues("dropped").Inc()
			p.logger.Warn("Change queue full, dropping signal",
				zap.String("key", s.Key),
				zap.String("change", s.Change),
				zap.String("entityID", s.EntityID))
		}
	}
}

// Stop drains the queue and waits for the workers to exit.
func (p *Propagator) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.queue)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

func (p *Propagator) run() {
	defer p.wg.Done()
	for signal := range p.queue {
		p.publish(signal)
	}
}

func (p *Propagator) publish(signal models.ChangeSignal) {
	var err error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err = p.bus.Publish(ctx, signal)
		cancel()
		if err == nil {
			metrics.PropagationSignals.WithLabelValues("published").Inc()
			return
		}
		if attempt < publishAttempts {
			time.Sleep(p.backoff * time.Duration(attempt))
		}
	}
	metrics.PropagationSignals.WithLabelValues("failed").Inc()
	p.logger.Error("Failed to publish change signal",
		zap.String("key", signal.Key),
		zap.String("change", signal.Change),
		zap.Error(err))
}

// BookingSignals builds the signals for a booking change, one per interested party.
func BookingSignals(b *models.Booking, change string) []models.ChangeSignal {
	now := time.Now()
	out := []models.ChangeSignal{{
		Key: models.RequesterKey(b.RequesterID), Entity: models.EntityBooking,
		EntityID: b.ID, Change: change, At: now,
	}}
	if b.ResourceID != "" {
		out = append(out, models.ChangeSignal{
			Key: models.ResourceKey(b.ResourceID), Entity: models.EntityBooking,
			EntityID: b.ID, Change: change, At: now,
		})
	}
	return out
}

// ResourceSignal builds the signal for a change on a resource itself.
func ResourceSignal(resourceID, change string) models.ChangeSignal {
	return models.ChangeSignal{
		Key: models.ResourceKey(resourceID), Entity: models.EntityResource,
		EntityID: resourceID, Change: change, At: time.Now(),
	}
}
