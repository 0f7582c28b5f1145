package http

import (
	"errors"
	"strconv"

	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/utils"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/catalog/internal/repository"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/catalog/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ProductHandler struct {
	service  service.CatalogService
	logger   *zap.Logger
	validate *validator.Validate
}

func NewProductHandler(service service.CatalogService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

type decreaseStockInput struct {
	Quantity int64 `json:"quantity" validate:"required,gt=0"`
}

func (h *ProductHandler) FindByID(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}

	product, err := h.service.FindByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		}

		h.logger.Error("find product failed", zap.Int64("id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"product": product})
}

func (h *ProductHandler) DecreaseStock(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}

	input := new(decreaseStockInput)
	if err := c.BodyParser(input); err != nil {
		h.logger.Warn("failed to parse body in decrease stock", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	product, err := h.service.DecreaseStock(c.UserContext(), id, input.Quantity)
	if err != nil {
		var stockErr *repository.InsufficientStockError
		if errors.As(err, &stockErr) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":      "insufficient stock",
				"product_id": stockErr.ProductID,
				"requested":  stockErr.Requested,
				"available":  stockErr.Available,
			})
		}

		if errors.Is(err, repository.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		}

		h.logger.Error("decrease stock failed", zap.Int64("id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"product": product})
}
