package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/cache"
	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/mylogger"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/catalog/internal/domain"
	"go.uber.org/zap"
)

type cachedCatalogService struct {
	next     CatalogService
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewCachedCatalogService wraps reads in a read-through cache. Writes are
// never cached: DecreaseStock always reaches the store and invalidates
// the product's entry before acknowledging.
func NewCachedCatalogService(next CatalogService, c cache.Cache, ttl time.Duration, logger *zap.Logger) CatalogService {
	return &cachedCatalogService{
		next:     next,
		cache:    c,
		cacheTTL: ttl,
		logger:   logger,
	}
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (s *cachedCatalogService) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	key := productKey(id)

	raw, gen, ok := s.cache.Get(ctx, key)
	if ok {
		var product domain.Product
		if err := json.Unmarshal([]byte(raw), &product); err == nil {
			return &product, nil
		}
	}

	product, err := s.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		s.cache.Set(ctx, key, string(data), s.cacheTTL, gen)
	}

	return product, nil
}

func (s *cachedCatalogService) DecreaseStock(ctx context.Context, id, quantity int64) (*domain.Product, error) {
	product, err := s.next.DecreaseStock(ctx, id, quantity)
	if err != nil {
		return nil, err
	}

	// Invalidate before returning so no caller that has seen this
	// decrement acknowledged can still read the stale quantity.
	if err := s.cache.Invalidate(ctx, productKey(id)); err != nil {
		mylogger.Warn(
			ctx,
			s.logger,
			"cache invalidation failed after stock decrement",
			zap.Int64("product_id", id),
			zap.Error(err),
		)
	}

	return product, nil
}
