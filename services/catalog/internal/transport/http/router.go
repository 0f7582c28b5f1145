package http

import (
	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/token"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/catalog/internal/transport/http/middleware"
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, h *ProductHandler, verifier *token.Verifier) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "service": "catalog-service"})
	})

	products := app.Group("/api/products")
	products.Get("/:id", h.FindByID)
	products.Post("/:id/decrease-stock", middleware.NewAuthMiddleware(verifier), h.DecreaseStock)
}
