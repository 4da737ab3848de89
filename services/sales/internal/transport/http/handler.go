package http

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/leandroAntunes00/e-commerce-microservice/pkg/utils"
	"github.com/leandroAntunes00/e-commerce-microservice/services/sales/internal/client"
	"github.com/leandroAntunes00/e-commerce-microservice/services/sales/internal/domain"
	"github.com/leandroAntunes00/e-commerce-microservice/services/sales/internal/repository"
	"github.com/leandroAntunes00/e-commerce-microservice/services/sales/internal/service"
	"go.uber.org/zap"
)

type OrderHandler struct {
	service  service.OrderService
	logger   *zap.Logger
	validate *validator.Validate
}

func NewOrderHandler(service service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

type createOrderRequest struct {
	UserID int64              `json:"user_id" validate:"required,gt=0"`
	Items  []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	Notes  string             `json:"notes" validate:"max=500"`
}

type orderItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int32 `json:"quantity" validate:"required,gt=0"`
}

type paymentRequest struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Method string `json:"method" validate:"required"`
}

type cancelRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": utils.FormatValidationError(err)})
	}

	items := make([]service.NewOrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.NewOrderItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	order, err := h.service.CreateOrder(c.UserContext(), req.UserID, items, req.Notes)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"order_id":     order.ID,
		"status":       order.Status,
		"total_amount": order.TotalAmount,
	})
}

func (h *OrderHandler) Pay(c *fiber.Ctx) error {
	orderID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	var req paymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": utils.FormatValidationError(err)})
	}

	if err := h.service.ProcessPayment(c.UserContext(), int64(orderID), req.UserID, req.Amount, req.Method); err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(fiber.Map{"order_id": orderID, "status": domain.OrderStatusConfirmed})
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	orderID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	var req cancelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": utils.FormatValidationError(err)})
	}

	if err := h.service.CancelOrder(c.UserContext(), int64(orderID), req.UserID); err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(fiber.Map{"order_id": orderID, "status": domain.OrderStatusCancelled})
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	orderID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	userID := c.QueryInt("user_id")
	if userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
	}

	order, err := h.service.GetOrder(c.UserContext(), int64(orderID), int64(userID))
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(order)
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	userID := c.QueryInt("user_id")
	if userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
	}

	orders, err := h.service.ListOrders(c.UserContext(), int64(userID))
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(fiber.Map{"orders": orders})
}

// mapError keeps the client-fault vs server-fault split: domain rule
// violations become 4xx, infrastructure failures 500.
func (h *OrderHandler) mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
	case errors.Is(err, client.ErrProductNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAmountMismatch),
		errors.Is(err, service.ErrEmptyOrder):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	default:
		h.logger.Error("Unhandled error in sales handler", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}
