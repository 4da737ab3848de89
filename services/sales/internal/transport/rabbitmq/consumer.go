package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/leandroAntunes00/e-commerce-microservice/pkg/messaging"
	"github.com/leandroAntunes00/e-commerce-microservice/pkg/mylogger"
	"github.com/leandroAntunes00/e-commerce-microservice/services/sales/internal/service"
	"go.uber.org/zap"
)

// Consumer wires the reservation-result queue to the order service.
type Consumer struct {
	service service.OrderService
	logger  *zap.Logger
}

func NewConsumer(service service.OrderService, logger *zap.Logger) *Consumer {
	return &Consumer{
		service: service,
		logger:  logger,
	}
}

// Workers returns one hosted consumer per queue this service listens on.
func (c *Consumer) Workers(channels messaging.ChannelProvider, settings messaging.Settings) []*messaging.ConsumerWorker {
	reservationQueue := settings.QueuePrefix + messaging.ToRoutingKey(messaging.OrderReservationCompleted{}.EventType())

	return []*messaging.ConsumerWorker{
		messaging.NewConsumerWorker(
			messaging.NewConsumer(channels, settings, c.logger),
			reservationQueue,
			c.handleReservationCompleted,
			c.logger,
		),
	}
}

func (c *Consumer) handleReservationCompleted(ctx context.Context, message string) error {
	var event messaging.OrderReservationCompleted
	if err := json.Unmarshal([]byte(message), &event); err != nil {
		mylogger.Error(ctx, c.logger, "Failed to unmarshal OrderReservationCompleted", zap.Error(err))
		return fmt.Errorf("unmarshal OrderReservationCompleted: %w", err)
	}

	mylogger.Info(
		ctx,
		c.logger,
		"Processing reservation result",
		zap.Int64("order_id", event.OrderID),
		zap.Bool("success", event.Success),
	)

	return c.service.HandleReservationResult(ctx, &event)
}
