package rabbit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rabbitmq/amqp091-go"
)

const (
	queueName        = "order_tracking_service_orders"
	orderPlacedTopic = "order_placed"
)

// SetupConsumers binds the service queue to the order_placed fanout exchange
// and consumes it until ctx is done or the channel closes.
func SetupConsumers(ctx context.Context, ch *amqp091.Channel, orders OrderCreator) error {
	consumer := NewOrderPlacedConsumer(orders)

	// 1. Declare the queue
	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// 2. Bind to the fanout exchange
	if err := ch.QueueBind(q.Name, "", orderPlacedTopic, false, nil); err != nil {
		return fmt.Errorf("bind exchange %s: %w", orderPlacedTopic, err)
	}

	// 3. Consume
	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					slog.Warn("rabbit delivery channel closed")
					return
				}
				if err := consumer.Handle(ctx, m.Body); err != nil {
					// Malformed or unprocessable events are dropped, not requeued.
					_ = m.Nack(false, false)
					continue
				}
				_ = m.Ack(false)
			}
		}
	}()

	slog.Info("subscribed to exchange", "exchange", orderPlacedTopic, "queue", q.Name)
	return nil
}
