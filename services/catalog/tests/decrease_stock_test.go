package tests

import (
	"errors"
	"sync"

	"github.com/Sukhmangill23/E-Commerce-Microservices/services/catalog/internal/repository"
)

func (s *IntegrationTestSuite) TestDecreaseStock_Success() {
	s.seedProduct(1, "Keyboard", 99999, 50)

	product, err := s.CatalogService.DecreaseStock(s.Ctx, 1, 2)
	s.Require().NoError(err)
	s.Require().Equal(int64(48), product.StockQuantity)
	s.Require().Equal(int64(99999), product.Price)

	s.Require().Equal(int64(48), s.currentStock(1))
}

func (s *IntegrationTestSuite) TestDecreaseStock_Insufficient() {
	s.seedProduct(1, "Keyboard", 99999, 1)

	_, err := s.CatalogService.DecreaseStock(s.Ctx, 1, 2)

	var stockErr *repository.InsufficientStockError
	s.Require().ErrorAs(err, &stockErr)
	s.Require().Equal(int64(1), stockErr.ProductID)
	s.Require().Equal(int64(2), stockErr.Requested)
	s.Require().Equal(int64(1), stockErr.Available)

	s.Require().Equal(int64(1), s.currentStock(1))
}

func (s *IntegrationTestSuite) TestDecreaseStock_NotFound() {
	_, err := s.CatalogService.DecreaseStock(s.Ctx, 42, 1)
	s.Require().ErrorIs(err, repository.ErrProductNotFound)
}

// Two requests racing for the last unit: exactly one wins, stock ends at
// zero, never negative.
func (s *IntegrationTestSuite) TestDecreaseStock_RaceForLastUnit() {
	s.seedProduct(1, "Keyboard", 99999, 1)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.CatalogService.DecreaseStock(s.Ctx, 1, 1)
		}(i)
	}
	wg.Wait()

	var succeeded, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, repository.ErrInsufficientStock):
			insufficient++
		default:
			s.FailNowf("unexpected error", "%v", err)
		}
	}

	s.Require().Equal(1, succeeded)
	s.Require().Equal(1, insufficient)
	s.Require().Equal(int64(0), s.currentStock(1))
}

func (s *IntegrationTestSuite) TestDecreaseStock_ConcurrentNeverNegative() {
	s.seedProduct(1, "Keyboard", 99999, 5)

	const workers = 10
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.CatalogService.DecreaseStock(s.Ctx, 1, 1)
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}

	s.Require().Equal(5, succeeded)
	s.Require().Equal(int64(0), s.currentStock(1))
}

func (s *IntegrationTestSuite) TestFindByID() {
	s.seedProduct(3, "Mouse", 24999, 100)

	product, err := s.CatalogService.FindByID(s.Ctx, 3)
	s.Require().NoError(err)
	s.Require().Equal("Mouse", product.Name)
	s.Require().Equal(int64(24999), product.Price)
	s.Require().Equal(int64(100), product.StockQuantity)

	_, err = s.CatalogService.FindByID(s.Ctx, 999)
	s.Require().ErrorIs(err, repository.ErrProductNotFound)
}
