package http

import (
	"errors"
	"strconv"

	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/utils"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/client"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/domain"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/repository"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
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

type cartLineInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0"`
}

type createOrderInput struct {
	Products []cartLineInput `json:"products" validate:"required,min=1,dive"`
}

type updateStatusInput struct {
	Status string `json:"status" validate:"required"`
}

func userID(c *fiber.Ctx) int64 {
	id, _ := c.Locals("userId").(int64)
	return id
}

func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	input := new(createOrderInput)
	if err := c.BodyParser(input); err != nil {
		h.logger.Warn("failed to parse body in create order", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	lines := make([]domain.CartLine, len(input.Products))
	for i, p := range input.Products {
		lines[i] = domain.CartLine{ProductID: p.ProductID, Quantity: p.Quantity}
	}

	order, err := h.service.CreateOrder(c.UserContext(), userID(c), lines)
	if err != nil {
		return h.mapOrderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"order": order})
}

func (h *OrderHandler) mapOrderError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrEmptyCart), errors.Is(err, service.ErrInvalidQuantity):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, client.ErrProductNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, client.ErrInsufficientStock):
		var stockErr *client.InsufficientStockError
		if errors.As(err, &stockErr) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":      "insufficient stock",
				"product_id": stockErr.ProductID,
				"requested":  stockErr.Requested,
				"available":  stockErr.Available,
			})
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, client.ErrCatalogUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "catalog service unavailable"})
	default:
		h.logger.Error("create order failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	orderID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	order, err := h.service.GetOrder(c.UserContext(), userID(c), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
		}

		h.logger.Error("get order failed", zap.Int64("order_id", orderID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"order": order})
}

func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders(c.UserContext(), userID(c))
	if err != nil {
		h.logger.Error("list orders failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	if orders == nil {
		orders = []domain.Order{}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"orders": orders})
}

func (h *OrderHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.service.GetStats(c.UserContext(), userID(c))
	if err != nil {
		h.logger.Error("get stats failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"stats": stats})
}

func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	orderID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	input := new(updateStatusInput)
	if err := c.BodyParser(input); err != nil {
		h.logger.Warn("failed to parse body in update status", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	status, ok := domain.ParseOrderStatus(input.Status)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown status"})
	}

	return h.changeStatus(c, orderID, status)
}

func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	orderID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	return h.changeStatus(c, orderID, domain.OrderStatusCancelled)
}

func (h *OrderHandler) changeStatus(c *fiber.Ctx, orderID int64, status domain.OrderStatus) error {
	err := h.service.ChangeOrderStatus(c.UserContext(), userID(c), orderID, status)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
		}

		if errors.Is(err, repository.ErrInvalidStatusTransition) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}

		h.logger.Error("change order status failed", zap.Int64("order_id", orderID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": string(status)})
}
