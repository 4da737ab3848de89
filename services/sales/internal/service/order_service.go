package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leandroAntunes00/e-commerce-microservice/pkg/messaging"
	"github.com/leandroAntunes00/e-commerce-microservice/pkg/mylogger"
	"github.com/leandroAntunes00/e-commerce-microservice/services/sales/internal/client"
	"github.com/leandroAntunes00/e-commerce-microservice/services/sales/internal/domain"
	"github.com/leandroAntunes00/e-commerce-microservice/services/sales/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// EventPublisher is the slice of the messaging publisher this service needs.
type EventPublisher interface {
	Publish(ctx context.Context, event messaging.Event) error
}

var ErrEmptyOrder = errors.New("order must have at least one item")

type NewOrderItem struct {
	ProductID int64
	Quantity  int32
}

type OrderService interface {
	CreateOrder(ctx context.Context, userID int64, items []NewOrderItem, notes string) (*domain.Order, error)
	ProcessPayment(ctx context.Context, orderID, userID, amount int64, method string) error
	CancelOrder(ctx context.Context, orderID, userID int64) error
	HandleReservationResult(ctx context.Context, event *messaging.OrderReservationCompleted) error
	GetOrder(ctx context.Context, orderID, userID int64) (*domain.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]domain.Order, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	stockClient client.StockClient
	publisher   EventPublisher
	logger      *zap.Logger
	tracer      trace.Tracer
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	stockClient client.StockClient,
	publisher EventPublisher,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		stockClient: stockClient,
		publisher:   publisher,
		logger:      logger,
		tracer:      otel.Tracer("sales/order_service"),
	}
}

// CreateOrder validates every line item against the stock service (price and
// name lookup only, not a reservation), persists the order as Pending and
// publishes OrderCreated. The actual reservation happens asynchronously when
// the stock service consumes that event.
func (s *orderService) CreateOrder(ctx context.Context, userID int64, items []NewOrderItem, notes string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int("items_count", len(items)),
	)

	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	orderItems := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		product, err := s.stockClient.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, client.ErrProductNotFound) {
				return nil, fmt.Errorf("product %d: %w", item.ProductID, err)
			}

			mylogger.Error(ctx, s.logger, "Failed to look up product", zap.Int64("product_id", item.ProductID), zap.Error(err))
			return nil, fmt.Errorf("failed to look up product %d: %w", item.ProductID, err)
		}

		orderItems = append(orderItems, domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    item.Quantity,
		})
	}

	order := &domain.Order{
		UserID: userID,
		Status: domain.OrderStatusPending,
		Items:  orderItems,
		Notes:  notes,
	}
	order.CalculateTotal()

	if err := s.orderRepo.Create(ctx, order); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to create order", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	event := messaging.OrderCreated{
		BaseEvent:   messaging.NewBaseEvent(),
		OrderID:     order.ID,
		UserID:      order.UserID,
		Items:       toItemEvents(order.Items),
		TotalAmount: order.TotalAmount,
		CreatedAt:   order.CreatedAt,
	}

	// Persist-then-publish: if the publish fails the order stays Pending
	// and the error surfaces to the caller.
	if err := s.publisher.Publish(ctx, event); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to publish OrderCreated", zap.Int64("order_id", order.ID), zap.Error(err))
		return nil, fmt.Errorf("order %d created but event publish failed: %w", order.ID, err)
	}

	mylogger.Info(ctx, s.logger, "Order created", zap.Int64("order_id", order.ID), zap.Int64("total_amount", order.TotalAmount))
	return order, nil
}

// ProcessPayment confirms a reserved order. The paid amount must equal the
// order total exactly.
func (s *orderService) ProcessPayment(ctx context.Context, orderID, userID, amount int64, method string) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.ProcessPayment")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	order, err := s.orderRepo.GetByIDForUser(ctx, orderID, userID)
	if err != nil {
		return err
	}

	if err := order.Confirm(amount); err != nil {
		mylogger.Warn(
			ctx,
			s.logger,
			"Payment rejected",
			zap.Int64("order_id", orderID),
			zap.String("status", string(order.Status)),
			zap.Error(err),
		)
		return err
	}

	if err := s.orderRepo.UpdateStatus(ctx, order.ID, order.Status, order.Notes); err != nil {
		return err
	}

	event := messaging.OrderConfirmed{
		BaseEvent:   messaging.NewBaseEvent(),
		OrderID:     order.ID,
		UserID:      order.UserID,
		ConfirmedAt: time.Now().UTC(),
		Method:      method,
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to publish OrderConfirmed", zap.Int64("order_id", order.ID), zap.Error(err))
		return fmt.Errorf("order %d confirmed but event publish failed: %w", order.ID, err)
	}

	mylogger.Info(ctx, s.logger, "Order confirmed", zap.Int64("order_id", order.ID), zap.String("method", method))
	return nil
}

// CancelOrder handles a user-initiated cancellation, legal from Pending or
// Reserved. The published OrderCancelled lets the stock service release
// whatever was reserved.
func (s *orderService) CancelOrder(ctx context.Context, orderID, userID int64) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.CancelOrder")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	order, err := s.orderRepo.GetByIDForUser(ctx, orderID, userID)
	if err != nil {
		return err
	}

	if err := order.Cancel(""); err != nil {
		mylogger.Warn(
			ctx,
			s.logger,
			"Cancel rejected",
			zap.Int64("order_id", orderID),
			zap.String("status", string(order.Status)),
		)
		return err
	}

	if err := s.orderRepo.UpdateStatus(ctx, order.ID, order.Status, order.Notes); err != nil {
		return err
	}

	return s.publishCancelled(ctx, order)
}

// HandleReservationResult finalizes the reservation leg of the saga: a
// successful reservation moves the order to Reserved, a failed one cancels
// it and emits the compensating OrderCancelled so the stock service releases
// any items it already reserved.
func (s *orderService) HandleReservationResult(ctx context.Context, event *messaging.OrderReservationCompleted) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.HandleReservationResult")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", event.OrderID),
		attribute.Bool("success", event.Success),
	)

	order, err := s.orderRepo.GetByID(ctx, event.OrderID)
	if err != nil {
		mylogger.Warn(ctx, s.logger, "Order not found for reservation result", zap.Int64("order_id", event.OrderID))
		return err
	}

	if event.Success {
		if err := order.Reserve(); err != nil {
			mylogger.Warn(
				ctx,
				s.logger,
				"Reservation result for order not in Pending",
				zap.Int64("order_id", order.ID),
				zap.String("status", string(order.Status)),
			)
			return err
		}

		if err := s.orderRepo.UpdateStatus(ctx, order.ID, order.Status, order.Notes); err != nil {
			return err
		}

		mylogger.Info(ctx, s.logger, "Order reserved", zap.Int64("order_id", order.ID))
		return nil
	}

	if err := order.Cancel(event.Reason); err != nil {
		mylogger.Warn(
			ctx,
			s.logger,
			"Reservation failure for order not in Pending",
			zap.Int64("order_id", order.ID),
			zap.String("status", string(order.Status)),
		)
		return err
	}

	if err := s.orderRepo.UpdateStatus(ctx, order.ID, order.Status, order.Notes); err != nil {
		return err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order cancelled after reservation failure",
		zap.Int64("order_id", order.ID),
		zap.String("reason", event.Reason),
	)

	return s.publishCancelled(ctx, order)
}

func (s *orderService) GetOrder(ctx context.Context, orderID, userID int64) (*domain.Order, error) {
	return s.orderRepo.GetByIDForUser(ctx, orderID, userID)
}

func (s *orderService) ListOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	return s.orderRepo.ListByUser(ctx, userID)
}

func (s *orderService) publishCancelled(ctx context.Context, order *domain.Order) error {
	event := messaging.OrderCancelled{
		BaseEvent:   messaging.NewBaseEvent(),
		OrderID:     order.ID,
		UserID:      order.UserID,
		Items:       toItemEvents(order.Items),
		CancelledAt: time.Now().UTC(),
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to publish OrderCancelled", zap.Int64("order_id", order.ID), zap.Error(err))
		return fmt.Errorf("order %d cancelled but event publish failed: %w", order.ID, err)
	}

	mylogger.Info(ctx, s.logger, "Order cancelled", zap.Int64("order_id", order.ID))
	return nil
}

func toItemEvents(items []domain.OrderItem) []messaging.OrderItemEvent {
	events := make([]messaging.OrderItemEvent, len(items))
	for i, item := range items {
		events[i] = messaging.OrderItemEvent{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}
	return events
}
