package service

import (
	"context"
	"errors"

	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/mylogger"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/catalog/internal/domain"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/catalog/internal/repository"
	"go.uber.org/zap"
)

type CatalogService interface {
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	DecreaseStock(ctx context.Context, id, quantity int64) (*domain.Product, error)
}

type catalogService struct {
	productRepo repository.ProductRepository
	logger      *zap.Logger
}

func NewCatalogService(productRepo repository.ProductRepository, logger *zap.Logger) CatalogService {
	return &catalogService{
		productRepo: productRepo,
		logger:      logger,
	}
}

func (s *catalogService) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, err
		}

		mylogger.Error(ctx, s.logger, "error finding product", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return product, nil
}

func (s *catalogService) DecreaseStock(ctx context.Context, id, quantity int64) (*domain.Product, error) {
	product, err := s.productRepo.DecreaseStock(ctx, id, quantity)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			mylogger.Warn(
				ctx,
				s.logger,
				"insufficient stock",
				zap.Int64("product_id", id),
				zap.Int64("quantity", quantity),
			)
			return nil, err
		}

		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, err
		}

		mylogger.Error(ctx, s.logger, "error decreasing stock", zap.Error(err))
		return nil, err
	}

	return product, nil
}
