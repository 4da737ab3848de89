package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leandroAntunes00/e-commerce-microservice/pkg/messaging"
	"github.com/leandroAntunes00/e-commerce-microservice/pkg/mylogger"
	"github.com/leandroAntunes00/e-commerce-microservice/services/stock/internal/domain"
	"github.com/leandroAntunes00/e-commerce-microservice/services/stock/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// EventPublisher is the slice of the messaging publisher the service needs.
type EventPublisher interface {
	Publish(ctx context.Context, event messaging.Event) error
}

type NewProduct struct {
	Name          string
	Description   string
	Price         int64
	StockQuantity int32
}

type StockService interface {
	CreateProduct(ctx context.Context, input NewProduct) (*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpdateStock(ctx context.Context, productID int64, quantity int32) error
	HandleOrderCreated(ctx context.Context, event messaging.OrderCreated) error
	HandleOrderCancelled(ctx context.Context, event messaging.OrderCancelled) error
}

type stockService struct {
	repo      repository.ProductRepository
	publisher EventPublisher
	logger    *zap.Logger
	tracer    trace.Tracer
}

func NewStockService(repo repository.ProductRepository, publisher EventPublisher, logger *zap.Logger) StockService {
	return &stockService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer("stock-service"),
	}
}

func (s *stockService) CreateProduct(ctx context.Context, input NewProduct) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "service.CreateProduct")
	defer span.End()

	product := &domain.Product{
		Name:          input.Name,
		Description:   input.Description,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}

	event := messaging.ProductCreated{
		BaseEvent:     messaging.NewBaseEvent(),
		ProductID:     product.ID,
		Name:          product.Name,
		Description:   product.Description,
		Price:         product.Price,
		StockQuantity: int64(product.StockQuantity),
		CreatedAt:     product.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to publish product created event",
			zap.Int64("product_id", product.ID), zap.Error(err))
	}

	return product, nil
}

func (s *stockService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "service.GetProduct")
	defer span.End()

	return s.repo.GetByID(ctx, id)
}

func (s *stockService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "service.ListProducts")
	defer span.End()

	return s.repo.List(ctx)
}

// UpdateStock is the administrative correction path: it sets the absolute
// stock level and announces the change.
func (s *stockService) UpdateStock(ctx context.Context, productID int64, quantity int32) error {
	ctx, span := s.tracer.Start(ctx, "service.UpdateStock")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", productID))

	level, err := s.repo.UpdateStock(ctx, productID, quantity)
	if err != nil {
		return err
	}

	s.publishStockUpdated(ctx, productID, level, messaging.StockOperationUpdated)

	mylogger.Info(ctx, s.logger, "Stock level set",
		zap.Int64("product_id", productID),
		zap.Int32("quantity", quantity))

	return nil
}

// HandleOrderCreated walks every item of the order attempting to reserve
// stock. The first failure decides the outcome but the remaining items are
// still attempted, and exactly one completion event is published at the end.
// Items reserved before a failure are not rolled back here; the sales side
// reacts to the failed completion by cancelling the order, which routes back
// as OrderCancelled and releases whatever was taken.
func (s *stockService) HandleOrderCreated(ctx context.Context, event messaging.OrderCreated) error {
	ctx, span := s.tracer.Start(ctx, "service.HandleOrderCreated")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", event.OrderID))

	success := true
	reason := ""

	for _, item := range event.Items {
		level, err := s.repo.ReserveStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) || errors.Is(err, repository.ErrInsufficientStock) {
				if success {
					success = false
					reason = fmt.Sprintf("product %d: %s", item.ProductID, err)
				}
				mylogger.Warn(ctx, s.logger, "Reservation rejected",
					zap.Int64("order_id", event.OrderID),
					zap.Int64("product_id", item.ProductID),
					zap.Error(err))
				continue
			}
			return fmt.Errorf("failed to reserve product %d: %w", item.ProductID, err)
		}

		s.publishStockUpdated(ctx, item.ProductID, level, messaging.StockOperationReserved)
	}

	completed := messaging.OrderReservationCompleted{
		BaseEvent:  messaging.NewBaseEvent(),
		OrderID:    event.OrderID,
		Success:    success,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, completed); err != nil {
		return fmt.Errorf("failed to publish reservation result: %w", err)
	}

	mylogger.Info(ctx, s.logger, "Reservation completed",
		zap.Int64("order_id", event.OrderID),
		zap.Bool("success", success))

	return nil
}

// HandleOrderCancelled returns every item's quantity to stock. The release is
// additive and unconditional, matching how partial reservations are undone.
func (s *stockService) HandleOrderCancelled(ctx context.Context, event messaging.OrderCancelled) error {
	ctx, span := s.tracer.Start(ctx, "service.HandleOrderCancelled")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", event.OrderID))

	for _, item := range event.Items {
		level, err := s.repo.ReleaseStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				mylogger.Warn(ctx, s.logger, "Cannot release stock for unknown product",
					zap.Int64("order_id", event.OrderID),
					zap.Int64("product_id", item.ProductID))
				continue
			}
			return fmt.Errorf("failed to release product %d: %w", item.ProductID, err)
		}

		s.publishStockUpdated(ctx, item.ProductID, level, messaging.StockOperationReleased)
	}

	return nil
}

func (s *stockService) publishStockUpdated(ctx context.Context, productID int64, level *repository.StockLevel, operation string) {
	event := messaging.StockUpdated{
		BaseEvent:     messaging.NewBaseEvent(),
		ProductID:     productID,
		ProductName:   level.ProductName,
		PreviousStock: int64(level.PreviousStock),
		NewStock:      int64(level.NewStock),
		Operation:     operation,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to publish stock updated event",
			zap.Int64("product_id", productID), zap.Error(err))
	}
}
