package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"order-tracking-service/internal/model"
	"order-tracking-service/internal/recognition"
	"order-tracking-service/internal/service"
)

// OrderCreator is satisfied by *service.OrderService.
type OrderCreator interface {
	CreateOrder(ctx context.Context, code string) (*model.Order, error)
}

type OrderPlacedConsumer struct {
	Orders OrderCreator
}

func NewOrderPlacedConsumer(o OrderCreator) *OrderPlacedConsumer {
	return &OrderPlacedConsumer{Orders: o}
}

// OrderPlacedMessage is the envelope published on the order_placed exchange.
type OrderPlacedMessage struct {
	CorrelationID string `json:"correlation_id"`
	Exchange      string `json:"exchange"`
	RoutingKey    string `json:"routing_key"`
	Message       struct {
		OrderID string `json:"orderId"`
		UserID  string `json:"userId"`
	} `json:"message"`
}

// Handle registers the placed order in its initial status. A redelivered
// event for a known order is a no-op.
func (c *OrderPlacedConsumer) Handle(ctx context.Context, msg []byte) error {
	var event OrderPlacedMessage
	if err := json.Unmarshal(msg, &event); err != nil {
		slog.Error("could not parse order_placed event", "error", err)
		return err
	}
	if recognition.NormalizeCode(event.Message.OrderID) == "" {
		slog.Warn("order_placed event without orderId", "correlation_id", event.CorrelationID)
		return fmt.Errorf("order_placed event without orderId")
	}

	o, err := c.Orders.CreateOrder(ctx, event.Message.OrderID)
	if errors.Is(err, service.ErrAlreadyExists) {
		slog.Info("order already registered", "code", recognition.NormalizeCode(event.Message.OrderID))
		return nil
	}
	if err != nil {
		slog.Error("could not register placed order", "order", event.Message.OrderID, "error", err)
		return err
	}

	slog.Info("placed order registered", "code", o.Code, "correlation_id", event.CorrelationID)
	return nil
}
