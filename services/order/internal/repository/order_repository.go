package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/mylogger"
	outboxDomain "github.com/Sukhmangill23/E-Commerce-Microservices/pkg/outbox/domain"
	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/outbox/worker"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderRepository interface {
	SaveOrder(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, userID, orderID int64) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	Stats(ctx context.Context, userID int64) (*domain.OrderStats, error)
	ChangeOrderStatus(ctx context.Context, userID, orderID int64, status domain.OrderStatus) error
}

type orderRepo struct {
	pool       *pgxpool.Pool
	outboxRepo worker.OutboxRepository
	logger     *zap.Logger
	tracer     trace.Tracer
}

func NewOrderRepository(pool *pgxpool.Pool, outboxRepo worker.OutboxRepository, logger *zap.Logger) OrderRepository {
	return &orderRepo{
		pool:       pool,
		outboxRepo: outboxRepo,
		logger:     logger,
		tracer:     otel.Tracer("order_repository"),
	}
}

// SaveOrder persists the order, its items and an OrderCreated outbox row
// in one transaction. The order is append-only from here on.
func (r *orderRepo) SaveOrder(ctx context.Context, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.SaveOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", order.UserID),
		attribute.Int("items_count", len(order.Items)),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		shutdownCtx := context.WithoutCancel(ctx)
		err := tx.Rollback(shutdownCtx)

		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(
				shutdownCtx,
				r.logger,
				"Error rolling back transaction",
				zap.Error(err),
			)
		}
	}()

	queryOrder := `
		INSERT INTO orders (user_id, status, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	if err := tx.QueryRow(
		ctx,
		queryOrder,
		order.UserID,
		string(order.Status),
		order.TotalAmount,
	).Scan(
		&order.ID,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		span.RecordError(err)

		mylogger.Warn(ctx, r.logger, "Failed to insert order", zap.Error(err))
		return err
	}

	queryItem := `
		INSERT INTO order_items (order_id, product_id, name, price, quantity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		if err := tx.QueryRow(
			ctx,
			queryItem,
			order.ID,
			item.ProductID,
			item.Name,
			item.Price,
			item.Quantity,
		).Scan(&item.ID); err != nil {
			span.RecordError(err)

			mylogger.Error(ctx, r.logger, "Failed to insert item", zap.Error(err))
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := r.saveCreatedEvent(ctx, tx, order); err != nil {
		mylogger.Error(ctx, r.logger, "Failed to save outbox event", zap.Error(err))
		return fmt.Errorf("failed to save outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *orderRepo) saveCreatedEvent(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	eventItems := make([]map[string]any, len(order.Items))
	for i, item := range order.Items {
		eventItems[i] = map[string]any{
			"product_id": item.ProductID,
			"quantity":   item.Quantity,
			"price":      item.Price,
		}
	}

	envelope := map[string]any{
		"event": "OrderCreated",
		"payload": map[string]any{
			"order_id":     order.ID,
			"user_id":      order.UserID,
			"total_amount": order.TotalAmount,
			"items":        eventItems,
		},
	}

	payloadBytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	outboxEvent := &outboxDomain.OutboxEvent{
		AggregateType: "Order",
		AggregateID:   fmt.Sprintf("%d", order.ID),
		EventType:     "OrderCreated",
		Payload:       payloadBytes,
		Topic:         "order_events",
	}

	return r.outboxRepo.SaveOutboxEvent(ctx, tx, outboxEvent)
}

func (r *orderRepo) GetByID(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.Int64("user_id", userID),
	)

	query := `
		SELECT id, user_id, status, total_amount, created_at, updated_at
		FROM orders
		WHERE id = $1 AND user_id = $2;
	`

	var order domain.Order
	if err := r.pool.QueryRow(ctx, query, orderID, userID).Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.TotalAmount,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query order",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.itemsForOrders(ctx, []int64{orderID})
	if err != nil {
		return nil, err
	}
	order.Items = items[orderID]

	return &order, nil
}

func (r *orderRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListByUser")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	query := `
		SELECT id, user_id, status, total_amount, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC;
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Failed to query orders", zap.Error(err))
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	var orderIDs []int64
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.Status,
			&order.TotalAmount,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			span.RecordError(err)

			mylogger.Error(ctx, r.logger, "Failed to scan row", zap.Error(err))
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		orders = append(orders, order)
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		mylogger.Error(ctx, r.logger, "Rows error", zap.Error(err))
		return nil, err
	}

	if len(orders) == 0 {
		return orders, nil
	}

	items, err := r.itemsForOrders(ctx, orderIDs)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}

	return orders, nil
}

func (r *orderRepo) itemsForOrders(ctx context.Context, orderIDs []int64) (map[int64][]domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, name, price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id ASC;
	`

	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		mylogger.Error(ctx, r.logger, "Failed to query order_items", zap.Error(err))
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]domain.OrderItem)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.Price,
			&item.Quantity,
		); err != nil {
			mylogger.Error(ctx, r.logger, "Failed to scan row", zap.Error(err))
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		result[item.OrderID] = append(result[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		mylogger.Error(ctx, r.logger, "Rows error", zap.Error(err))
		return nil, err
	}

	return result, nil
}

func (r *orderRepo) Stats(ctx context.Context, userID int64) (*domain.OrderStats, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Stats")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	query := `
		SELECT COUNT(*),
			COALESCE(SUM(total_amount), 0),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'cancelled')
		FROM orders
		WHERE user_id = $1;
	`

	var stats domain.OrderStats
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&stats.TotalOrders,
		&stats.TotalSpent,
		&stats.PendingOrders,
		&stats.CompletedOrders,
		&stats.CancelledOrders,
	); err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Failed to query stats", zap.Error(err))
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}

	return &stats, nil
}

// ChangeOrderStatus moves an order forward only: the WHERE clause refuses
// to touch anything but a pending order.
func (r *orderRepo) ChangeOrderStatus(ctx context.Context, userID, orderID int64, status domain.OrderStatus) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ChangeOrderStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("status", string(status)),
	)

	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3 AND status = 'pending';
	`

	commandTag, err := r.pool.Exec(ctx, query, string(status), orderID, userID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Failed to update order", zap.Error(err))
		return fmt.Errorf("failed to update order: %w", err)
	}

	if commandTag.RowsAffected() > 0 {
		return nil
	}

	var current string
	err = r.pool.QueryRow(
		ctx,
		`SELECT status FROM orders WHERE id = $1 AND user_id = $2`,
		orderID, userID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}

		span.RecordError(err)
		return fmt.Errorf("failed to query order status: %w", err)
	}

	return fmt.Errorf("order %d is %s: %w", orderID, current, ErrInvalidStatusTransition)
}
