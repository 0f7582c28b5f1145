package http

import (
	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/token"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/transport/http/middleware"
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, h *OrderHandler, verifier *token.Verifier) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "service": "order-service"})
	})

	orders := app.Group("/api/orders", middleware.NewAuthMiddleware(verifier))
	orders.Post("/", h.CreateOrder)
	orders.Get("/", h.ListOrders)
	// /stats must be registered before /:id or fiber matches it as an id.
	orders.Get("/stats", h.GetStats)
	orders.Get("/:id", h.GetOrder)
	orders.Put("/:id/status", h.UpdateStatus)
	orders.Delete("/:id", h.CancelOrder)
}
