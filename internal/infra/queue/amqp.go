package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"feed-ranker/internal/domain"
	"feed-ranker/internal/infra/metrics"
)

// AMQPEngagementQueue передаёт события вовлечённости через RabbitMQ.
// Путь записи публикует событие на каждый лайк/комментарий/просмотр,
// инвалидатор читает их и сбрасывает затронутые страницы кэша.
type AMQPEngagementQueue struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	queue      string
	deliveries <-chan amqp.Delivery
}

var _ domain.EngagementQueue = (*AMQPEngagementQueue)(nil)

// NewAMQP подключается к брокеру и объявляет устойчивую очередь.
func NewAMQP(url, queueName string) (*AMQPEngagementQueue, error) {
	if url == "" {
		return nil, fmt.Errorf("amqp url пуст")
	}
	if queueName == "" {
		return nil, fmt.Errorf("имя очереди пусто")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("подключение к rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("открытие канала: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("объявление очереди: %w", err)
	}
	return &AMQPEngagementQueue{conn: conn, ch: ch, queue: queueName}, nil
}

// Publish публикует событие в очередь.
func (q *AMQPEngagementQueue) Publish(ctx context.Context, event domain.EngagementEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	start := time.Now()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    event.OccurredAt,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Pop блокирующе читает событие из очереди.
func (q *AMQPEngagementQueue) Pop(ctx context.Context) (domain.EngagementEvent, error) {
	if q.deliveries == nil {
		deliveries, err := q.ch.Consume(q.queue, "", false, false, false, false, nil)
		if err != nil {
			return domain.EngagementEvent{}, fmt.Errorf("подписка на очередь: %w", err)
		}
		q.deliveries = deliveries
	}
	for {
		select {
		case <-ctx.Done():
			return domain.EngagementEvent{}, ctx.Err()
		case delivery, ok := <-q.deliveries:
			if !ok {
				return domain.EngagementEvent{}, fmt.Errorf("канал доставки закрыт")
			}
			var event domain.EngagementEvent
			if err := json.Unmarshal(delivery.Body, &event); err != nil {
				// Непарсящееся сообщение не возвращаем в очередь.
				_ = delivery.Nack(false, false)
				continue
			}
			if err := delivery.Ack(false); err != nil {
				return domain.EngagementEvent{}, fmt.Errorf("ack: %w", err)
			}
			return event, nil
		}
	}
}

// Close закрывает канал и соединение.
func (q *AMQPEngagementQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		_ = q.conn.Close()
		return err
	}
	return q.conn.Close()
}
