package http

import "github.com/gofiber/fiber/v2"

func SetupRoutes(app *fiber.App, orders *OrderHandler) {
	api := app.Group("/api/sales")

	api.Post("/orders", orders.Create)
	api.Get("/orders", orders.List)
	api.Get("/orders/:id", orders.Get)
	api.Post("/orders/:id/pay", orders.Pay)
	api.Post("/orders/:id/cancel", orders.Cancel)
}
