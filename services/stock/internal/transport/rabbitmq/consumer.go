package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/leandroAntunes00/e-commerce-microservice/pkg/messaging"
	"github.com/leandroAntunes00/e-commerce-microservice/pkg/mylogger"
	"github.com/leandroAntunes00/e-commerce-microservice/services/stock/internal/service"
	"go.uber.org/zap"
)

// Consumer wires the order lifecycle queues to the stock service.
type Consumer struct {
	service service.StockService
	logger  *zap.Logger
}

func NewConsumer(service service.StockService, logger *zap.Logger) *Consumer {
	return &Consumer{
		service: service,
		logger:  logger,
	}
}

// Workers returns one hosted consumer per queue this service listens on.
func (c *Consumer) Workers(channels messaging.ChannelProvider, settings messaging.Settings) []*messaging.ConsumerWorker {
	createdQueue := settings.QueuePrefix + messaging.ToRoutingKey(messaging.OrderCreated{}.EventType())
	cancelledQueue := settings.QueuePrefix + messaging.ToRoutingKey(messaging.OrderCancelled{}.EventType())

	return []*messaging.ConsumerWorker{
		messaging.NewConsumerWorker(
			messaging.NewConsumer(channels, settings, c.logger),
			createdQueue,
			c.handleOrderCreated,
			c.logger,
		),
		messaging.NewConsumerWorker(
			messaging.NewConsumer(channels, settings, c.logger),
			cancelledQueue,
			c.handleOrderCancelled,
			c.logger,
		),
	}
}

func (c *Consumer) handleOrderCreated(ctx context.Context, message string) error {
	var event messaging.OrderCreated
	if err := json.Unmarshal([]byte(message), &event); err != nil {
		mylogger.Error(ctx, c.logger, "Failed to unmarshal OrderCreated", zap.Error(err))
		return fmt.Errorf("unmarshal OrderCreated: %w", err)
	}

	mylogger.Info(
		ctx,
		c.logger,
		"Processing order for reservation",
		zap.Int64("order_id", event.OrderID),
		zap.Int("items", len(event.Items)),
	)

	return c.service.HandleOrderCreated(ctx, event)
}

func (c *Consumer) handleOrderCancelled(ctx context.Context, message string) error {
	var event messaging.OrderCancelled
	if err := json.Unmarshal([]byte(message), &event); err != nil {
		mylogger.Error(ctx, c.logger, "Failed to unmarshal OrderCancelled", zap.Error(err))
		return fmt.Errorf("unmarshal OrderCancelled: %w", err)
	}

	mylogger.Info(
		ctx,
		c.logger,
		"Releasing stock for cancelled order",
		zap.Int64("order_id", event.OrderID),
	)

	return c.service.HandleOrderCancelled(ctx, event)
}
