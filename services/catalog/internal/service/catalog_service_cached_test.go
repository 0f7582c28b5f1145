package service

import (
	"context"
	"testing"
	"time"

	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/cache"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/catalog/internal/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCatalog struct {
	products      map[int64]*domain.Product
	findCalls     int
	decreaseCalls int
}

func (f *fakeCatalog) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	f.findCalls++
	p := *f.products[id]
	return &p, nil
}

func (f *fakeCatalog) DecreaseStock(ctx context.Context, id, quantity int64) (*domain.Product, error) {
	f.decreaseCalls++
	f.products[id].StockQuantity -= quantity
	p := *f.products[id]
	return &p, nil
}

func newCachedFixture() (*fakeCatalog, CatalogService) {
	fake := &fakeCatalog{
		products: map[int64]*domain.Product{
			1: {ID: 1, Name: "Keyboard", Price: 99999, StockQuantity: 50, Category: "Peripherals"},
		},
	}

	cached := NewCachedCatalogService(fake, cache.NewMemory(), 10*time.Minute, zap.NewNop())
	return fake, cached
}

func TestCachedFindByID_PopulatesCache(t *testing.T) {
	ctx := context.Background()
	fake, cached := newCachedFixture()

	first, err := cached.FindByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(50), first.StockQuantity)

	second, err := cached.FindByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, first, second)

	require.Equal(t, 1, fake.findCalls)
}

func TestCachedDecreaseStock_InvalidatesEntry(t *testing.T) {
	ctx := context.Background()
	fake, cached := newCachedFixture()

	_, err := cached.FindByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, fake.findCalls)

	updated, err := cached.DecreaseStock(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(48), updated.StockQuantity)

	// The stale cached quantity must not be served after the decrement.
	fresh, err := cached.FindByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(48), fresh.StockQuantity)
	require.Equal(t, 2, fake.findCalls)
}

func TestCachedDecreaseStock_NeverReadsCache(t *testing.T) {
	ctx := context.Background()
	fake, cached := newCachedFixture()

	_, err := cached.FindByID(ctx, 1)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := cached.DecreaseStock(ctx, 1, 1)
		require.NoError(t, err)
	}

	require.Equal(t, 3, fake.decreaseCalls)
}
