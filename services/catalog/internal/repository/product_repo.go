package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/mylogger"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/catalog/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	DecreaseStock(ctx context.Context, id, quantity int64) (*domain.Product, error)
}

type productRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewProductRepository(pool *pgxpool.Pool, logger *zap.Logger) ProductRepository {
	return &productRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("contract/product_repo"),
	}
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		SELECT id, name, price, stock_quantity, category
		FROM products
		WHERE id = $1 AND deleted_at IS NULL;
	`

	var res domain.Product
	if err := r.pool.QueryRow(ctx, query, id).
		Scan(&res.ID, &res.Name, &res.Price, &res.StockQuantity, &res.Category); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error get by id",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting product: %w", err)
	}

	return &res, nil
}

// DecreaseStock is the single compare-and-decrement step: the stock guard
// and the subtraction happen in one statement, so concurrent callers
// racing on the same product serialize here and stock never goes negative.
func (r *productRepo) DecreaseStock(ctx context.Context, id, quantity int64) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.DecreaseStock")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.Int64("quantity", quantity),
	)

	query := `
		UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at = NOW()
		WHERE id = $1
			AND stock_quantity >= $2
			AND deleted_at IS NULL
		RETURNING id, name, price, stock_quantity, category;
	`

	var res domain.Product
	err := r.pool.QueryRow(ctx, query, id, quantity).
		Scan(&res.ID, &res.Name, &res.Price, &res.StockQuantity, &res.Category)
	if err == nil {
		return &res, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error decreasing stock",
			zap.Int64("id", id),
			zap.Int64("quantity", quantity),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error decreasing stock for product %d: %w", id, err)
	}

	// No row updated: either the product is gone or the stock guard failed.
	var available int64
	err = r.pool.QueryRow(
		ctx,
		`SELECT stock_quantity FROM products WHERE id = $1 AND deleted_at IS NULL`,
		id,
	).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("error checking stock for product %d: %w", id, err)
	}

	return nil, &InsufficientStockError{
		ProductID: id,
		Requested: quantity,
		Available: available,
	}
}
