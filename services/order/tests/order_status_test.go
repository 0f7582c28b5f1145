package tests

import (
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/client"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/domain"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/repository"
)

func (s *IntegrationTestSuite) createOrder(userID int64) *domain.Order {
	s.Catalog.setProduct(client.ProductSnapshot{ID: 1, Name: "Keyboard", Price: 99999, StockQuantity: 100})

	order, err := s.OrderService.CreateOrder(s.Ctx, userID, []domain.CartLine{
		{ProductID: 1, Quantity: 1},
	})
	s.Require().NoError(err)

	return order
}

func (s *IntegrationTestSuite) TestChangeOrderStatus_PendingToCompleted() {
	order := s.createOrder(7)

	err := s.OrderService.ChangeOrderStatus(s.Ctx, 7, order.ID, domain.OrderStatusCompleted)
	s.Require().NoError(err)

	stored, err := s.OrderService.GetOrder(s.Ctx, 7, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusCompleted, stored.Status)
}

func (s *IntegrationTestSuite) TestChangeOrderStatus_TerminalOrdersNeverChange() {
	order := s.createOrder(7)

	err := s.OrderService.ChangeOrderStatus(s.Ctx, 7, order.ID, domain.OrderStatusCancelled)
	s.Require().NoError(err)

	err = s.OrderService.ChangeOrderStatus(s.Ctx, 7, order.ID, domain.OrderStatusCompleted)
	s.Require().ErrorIs(err, repository.ErrInvalidStatusTransition)

	stored, err := s.OrderService.GetOrder(s.Ctx, 7, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusCancelled, stored.Status)
}

func (s *IntegrationTestSuite) TestChangeOrderStatus_OtherUsersOrderIsNotFound() {
	order := s.createOrder(7)

	err := s.OrderService.ChangeOrderStatus(s.Ctx, 8, order.ID, domain.OrderStatusCompleted)
	s.Require().ErrorIs(err, repository.ErrOrderNotFound)
}

func (s *IntegrationTestSuite) TestGetOrder_NotFound() {
	_, err := s.OrderService.GetOrder(s.Ctx, 7, 12345)
	s.Require().ErrorIs(err, repository.ErrOrderNotFound)
}

func (s *IntegrationTestSuite) TestStats() {
	first := s.createOrder(7)
	_ = s.createOrder(7)
	_ = s.createOrder(9)

	err := s.OrderService.ChangeOrderStatus(s.Ctx, 7, first.ID, domain.OrderStatusCompleted)
	s.Require().NoError(err)

	stats, err := s.OrderService.GetStats(s.Ctx, 7)
	s.Require().NoError(err)
	s.Require().Equal(int64(2), stats.TotalOrders)
	s.Require().Equal(int64(199998), stats.TotalSpent)
	s.Require().Equal(int64(1), stats.PendingOrders)
	s.Require().Equal(int64(1), stats.CompletedOrders)
	s.Require().Equal(int64(0), stats.CancelledOrders)
}
