// Package broker wraps the RabbitMQ transport. Both queues are durable and
// at-least-once: messages are acknowledged only after local processing, so a
// crash mid-task causes redelivery, not loss.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/theodorthegreathe/mvcr-application-checker/internal/backoff"
	"github.com/theodorthegreathe/mvcr-application-checker/types"
)

const (
	QueueFetchTasks    = "fetch-tasks"
	QueueNotifications = "notifications"
)

type Broker struct {
	conn *amqp.Connection
	log  *zap.Logger

	// amqp channels are not safe for concurrent publishing
	pubMu sync.Mutex
	pub   *amqp.Channel
}

// Connect dials RabbitMQ with bounded exponential-backoff retries and
// declares both queues. Like the store, a broker that never comes up is
// fatal at startup.
func Connect(ctx context.Context, url string, maxRetries int, retryDelay time.Duration, log *zap.Logger) (*Broker, error) {
	var conn *amqp.Connection
	err := backoff.Retry(ctx, maxRetries, retryDelay, func(attempt int) error {
		var derr error
		conn, derr = amqp.Dial(url)
		if derr != nil {
			log.Error("failed to connect to rabbit",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", maxRetries),
				zap.Error(derr))
		}
		return derr
	})
	if err != nil {
		return nil, fmt.Errorf("connect to rabbit: %w", err)
	}

	pub, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open publish channel: %w", err)
	}

	b := &Broker{conn: conn, log: log, pub: pub}
	for _, q := range []string{QueueFetchTasks, QueueNotifications} {
		if _, err := pub.QueueDeclare(q, true, false, false, false, nil); err != nil {
			b.Close()
			return nil, fmt.Errorf("declare queue %s: %w", q, err)
		}
	}
	log.Info("connected to rabbit")
	return b, nil
}

func (b *Broker) Close() {
	if b.pub != nil {
		_ = b.pub.Close()
	}
	if b.conn != nil {
		_ = b.conn.Close()
	}
}

func (b *Broker) publish(ctx context.Context, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	return b.pub.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

func (b *Broker) PublishFetchTask(ctx context.Context, t types.FetchTask) error {
	return b.publish(ctx, QueueFetchTasks, t)
}

func (b *Broker) PublishNotification(ctx context.Context, n types.Notification) error {
	return b.publish(ctx, QueueNotifications, n)
}

// ConsumeFetchTasks feeds decoded fetch tasks to handler from `workers`
// goroutines until ctx ends. A handler error rejects the delivery without
// requeue (the scheduler re-selects stale applications anyway); success acks.
func (b *Broker) ConsumeFetchTasks(ctx context.Context, workers int, handler func(context.Context, types.FetchTask) error) error {
	return consume(ctx, b, QueueFetchTasks, workers, handler)
}

// ConsumeNotifications feeds decoded notifications to handler from a single
// consumer goroutine.
func (b *Broker) ConsumeNotifications(ctx context.Context, handler func(context.Context, types.Notification) error) error {
	return consume(ctx, b, QueueNotifications, 1, handler)
}

func consume[T any](ctx context.Context, b *Broker, queue string, workers int, handler func(context.Context, T) error) error {
	if workers < 1 {
		workers = 1
	}
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consume channel: %w", err)
	}
	if err := ch.Qos(workers, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	go func() {
		<-ctx.Done()
		_ = ch.Close()
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range deliveries {
				var msg T
				if err := json.Unmarshal(d.Body, &msg); err != nil {
					b.log.Error("dropping undecodable message",
						zap.String("queue", queue),
						zap.String("message_id", d.MessageId),
						zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				if err := handler(ctx, msg); err != nil {
					b.log.Error("message handler failed",
						zap.String("queue", queue),
						zap.String("message_id", d.MessageId),
						zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}()
	}
	wg.Wait()
	return nil
}
