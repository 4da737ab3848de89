package http

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/leandroAntunes00/e-commerce-microservice/pkg/utils"
	"github.com/leandroAntunes00/e-commerce-microservice/services/stock/internal/repository"
	"github.com/leandroAntunes00/e-commerce-microservice/services/stock/internal/service"
	"go.uber.org/zap"
)

type ProductHandler struct {
	service  service.StockService
	logger   *zap.Logger
	validate *validator.Validate
}

func NewProductHandler(service service.StockService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

type createProductRequest struct {
	Name          string `json:"name" validate:"required,max=255"`
	Description   string `json:"description" validate:"max=1000"`
	Price         int64  `json:"price" validate:"required,gt=0"`
	StockQuantity int32  `json:"stock_quantity" validate:"gte=0"`
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var req createProductRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "error parsing body"})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "errors": utils.FormatValidationError(err)})
	}

	product, err := h.service.CreateProduct(c.UserContext(), service.NewProduct{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		return h.mapError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "product": product})
}

type updateStockRequest struct {
	StockQuantity *int32 `json:"stock_quantity" validate:"required,gte=0"`
}

func (h *ProductHandler) UpdateStock(c *fiber.Ctx) error {
	productID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid product id"})
	}

	var req updateStockRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "error parsing body"})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "errors": utils.FormatValidationError(err)})
	}

	if err := h.service.UpdateStock(c.UserContext(), int64(productID), *req.StockQuantity); err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "product_id": productID, "stock_quantity": *req.StockQuantity})
}

func (h *ProductHandler) Get(c *fiber.Ctx) error {
	productID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid product id"})
	}

	product, err := h.service.GetProduct(c.UserContext(), int64(productID))
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "product": product})
}

func (h *ProductHandler) List(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(c.UserContext())
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "products": products})
}

func (h *ProductHandler) mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "product not found"})
	default:
		h.logger.Error("Unhandled error in stock handler", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "internal server error"})
	}
}
