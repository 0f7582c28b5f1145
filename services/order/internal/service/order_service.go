package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/cache"
	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/mylogger"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/client"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/domain"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const statsCacheTTL = 5 * time.Minute

type OrderService interface {
	CreateOrder(ctx context.Context, userID int64, lines []domain.CartLine) (*domain.Order, error)
	GetOrder(ctx context.Context, userID, orderID int64) (*domain.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]domain.Order, error)
	GetStats(ctx context.Context, userID int64) (*domain.OrderStats, error)
	ChangeOrderStatus(ctx context.Context, userID, orderID int64, status domain.OrderStatus) error
}

type orderService struct {
	repo    repository.OrderRepository
	catalog client.Client
	cache   cache.Cache
	logger  *zap.Logger
	tracer  trace.Tracer
}

func NewOrderService(
	repo repository.OrderRepository,
	catalog client.Client,
	c cache.Cache,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		repo:    repo,
		catalog: catalog,
		cache:   c,
		logger:  logger,
		tracer:  otel.Tracer("order_service"),
	}
}

func statsKey(userID int64) string {
	return fmt.Sprintf("order:stats:%d", userID)
}

// CreateOrder runs the fulfillment sequence: validate the cart, fetch
// every product, reserve stock line by line, then persist. Reservation
// stops at the first failure; earlier decrements are not reversed, the
// shortfall is logged and left to operators.
func (s *orderService) CreateOrder(ctx context.Context, userID int64, lines []domain.CartLine) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int("lines_count", len(lines)),
	)

	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("product %d: %w", line.ProductID, ErrInvalidQuantity)
		}
	}

	// Validation pass: every product must exist before any stock moves.
	var previewTotal int64
	for _, line := range lines {
		snapshot, err := s.catalog.Fetch(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}

		previewTotal += snapshot.Price * line.Quantity
	}

	mylogger.Debug(
		ctx,
		s.logger,
		"Cart validated",
		zap.Int64("user_id", userID),
		zap.Int64("preview_total", previewTotal),
	)

	order := &domain.Order{
		UserID: userID,
		Status: domain.OrderStatusPending,
		Items:  make([]domain.OrderItem, 0, len(lines)),
	}

	for i, line := range lines {
		snapshot, err := s.catalog.Decrement(ctx, line.ProductID, line.Quantity)
		if err != nil {
			if i > 0 {
				mylogger.Warn(
					ctx,
					s.logger,
					"Order aborted with unreversed reservations",
					zap.Int64("user_id", userID),
					zap.Int64("failed_product_id", line.ProductID),
					zap.Int("reserved_lines", i),
					zap.Error(err),
				)
			}

			return nil, err
		}

		// The decrement response carries the authoritative price; the
		// validation-pass value was only advisory.
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: line.ProductID,
			Name:      snapshot.Name,
			Price:     snapshot.Price,
			Quantity:  line.Quantity,
		})
	}

	order.CalculateTotal()

	if err := s.repo.SaveOrder(ctx, order); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			s.logger,
			"Order persistence failed after stock was reserved",
			zap.Int64("user_id", userID),
			zap.Int("reserved_lines", len(order.Items)),
			zap.Error(err),
		)

		return nil, fmt.Errorf("%w: %v", ErrPersistFailure, err)
	}

	s.invalidateStats(ctx, userID)

	mylogger.Info(
		ctx,
		s.logger,
		"Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.Int64("total_amount", order.TotalAmount),
	)

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetOrder")
	defer span.End()

	order, err := s.repo.GetByID(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.CheckTotal(); err != nil {
		mylogger.Error(ctx, s.logger, "Order failed total check", zap.Error(err))
		return nil, err
	}

	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListOrders")
	defer span.End()

	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		if err := orders[i].CheckTotal(); err != nil {
			mylogger.Error(ctx, s.logger, "Order failed total check", zap.Error(err))
			return nil, err
		}
	}

	return orders, nil
}

func (s *orderService) GetStats(ctx context.Context, userID int64) (*domain.OrderStats, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetStats")
	defer span.End()

	key := statsKey(userID)

	raw, gen, ok := s.cache.Get(ctx, key)
	if ok {
		var stats domain.OrderStats
		if err := json.Unmarshal([]byte(raw), &stats); err == nil {
			return &stats, nil
		}
	}

	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(stats); err == nil {
		s.cache.Set(ctx, key, string(data), statsCacheTTL, gen)
	}

	return stats, nil
}

func (s *orderService) ChangeOrderStatus(ctx context.Context, userID, orderID int64, status domain.OrderStatus) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.ChangeOrderStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("status", string(status)),
	)

	if !domain.OrderStatusPending.CanTransitionTo(status) {
		return fmt.Errorf("cannot transition to %s: %w", status, repository.ErrInvalidStatusTransition)
	}

	if err := s.repo.ChangeOrderStatus(ctx, userID, orderID, status); err != nil {
		return err
	}

	s.invalidateStats(ctx, userID)

	return nil
}

func (s *orderService) invalidateStats(ctx context.Context, userID int64) {
	if err := s.cache.Invalidate(ctx, statsKey(userID)); err != nil {
		mylogger.Warn(
			ctx,
			s.logger,
			"Stats cache invalidation failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}
