package http

import "github.com/gofiber/fiber/v2"

func SetupRoutes(app *fiber.App, products *ProductHandler) {
	api := app.Group("/api/stock")

	api.Post("/products", products.Create)
	api.Get("/products", products.List)
	api.Get("/products/:id", products.Get)
	api.Put("/products/:id/stock", products.UpdateStock)
}
