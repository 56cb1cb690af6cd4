package propagation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"fastaid/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ExchangeName is the topic exchange change signals are published on.
const ExchangeName = "fastaid.changes"

// AMQPBus publishes signals to a RabbitMQ topic exchange with the
// subscription key as routing key. Each subscriber gets its own
// exclusive auto-delete queue.
type AMQPBus struct {
	conn   *amqp.Connection
	mu     sync.Mutex
	pubCh  *amqp.Channel
	logger *zap.Logger
}

func NewAMQPBus(url string, logger *zap.Logger) (*AMQPBus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel failed: %w", err)
	}
	if err := ch.ExchangeDeclare(ExchangeName, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp exchange declare failed: %w", err)
	}
	return &AMQPBus{conn: conn, pubCh: ch, logger: logger}, nil
}

func (b *AMQPBus) Publish(ctx context.Context, signal models.ChangeSignal) error {
	body, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("failed to encode signal: %w", err)
	}
	// amqp channels are not safe for concurrent publishing.
	b.mu.Lock()
	defer b.mu.Unlock()
	err = b.pubCh.PublishWithContext(ctx, ExchangeName, signal.Key, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("amqp publish failed: %w", err)
	}
	return nil
}

func (b *AMQPBus) Subscribe(ctx context.Context, key string) (<-chan models.ChangeSignal, func(), error) {
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("amqp channel failed: %w", err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("amqp queue declare failed: %w", err)
	}
	bindingKey := key
	if key == AllKeys {
		bindingKey = "#"
	}
	if err := ch.QueueBind(q.Name, bindingKey, ExchangeName, false, nil); err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("amqp queue bind failed: %w", err)
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("amqp consume failed: %w", err)
	}

	out := make(chan models.ChangeSignal, subscriberBuffer)
	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(out)
		defer ch.Close()
		for {
			select {
			case <-subCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				var signal models.ChangeSignal
				if err := json.Unmarshal(d.Body, &signal); err != nil {
					b.logger.Warn("Dropping malformed change signal", zap.String("routingKey", d.RoutingKey), zap.Error(err))
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

func (b *AMQPBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pubCh != nil {
		b.pubCh.Close()
	}
	return b.conn.Close()
}
