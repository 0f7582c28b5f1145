package tests

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/kafka"
	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/outbox/worker"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/client"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/domain"
	"go.uber.org/zap"
)

func (s *IntegrationTestSuite) TestCreateOrder_PersistsOrderItemsAndOutbox() {
	s.Catalog.setProduct(client.ProductSnapshot{ID: 1, Name: "Keyboard", Price: 99999, StockQuantity: 10})
	s.Catalog.setProduct(client.ProductSnapshot{ID: 3, Name: "Mouse", Price: 24999, StockQuantity: 5})

	order, err := s.OrderService.CreateOrder(s.Ctx, 7, []domain.CartLine{
		{ProductID: 1, Quantity: 2},
		{ProductID: 3, Quantity: 1},
	})
	s.Require().NoError(err)

	s.Require().Equal(domain.OrderStatusPending, order.Status)
	s.Require().Equal(int64(224997), order.TotalAmount)
	s.Require().NotZero(order.ID)

	s.Require().Equal(int64(8), s.Catalog.stock(1))
	s.Require().Equal(int64(4), s.Catalog.stock(3))

	stored, err := s.OrderService.GetOrder(s.Ctx, 7, order.ID)
	s.Require().NoError(err)
	s.Require().Len(stored.Items, 2)
	s.Require().Equal(int64(224997), stored.TotalAmount)

	var eventType string
	var payload []byte
	err = s.DbPool.QueryRow(
		s.Ctx,
		`SELECT event_type, payload FROM outbox WHERE aggregate_type = 'Order'`,
	).Scan(&eventType, &payload)
	s.Require().NoError(err)
	s.Require().Equal("OrderCreated", eventType)

	var envelope struct {
		Event   string `json:"event"`
		Payload struct {
			OrderID     int64 `json:"order_id"`
			UserID      int64 `json:"user_id"`
			TotalAmount int64 `json:"total_amount"`
		} `json:"payload"`
	}
	s.Require().NoError(json.Unmarshal(payload, &envelope))
	s.Require().Equal("OrderCreated", envelope.Event)
	s.Require().Equal(order.ID, envelope.Payload.OrderID)
	s.Require().Equal(int64(224997), envelope.Payload.TotalAmount)
}

func (s *IntegrationTestSuite) TestCreateOrder_OutboxWorkerPublishesToKafka() {
	s.Catalog.setProduct(client.ProductSnapshot{ID: 1, Name: "Keyboard", Price: 99999, StockQuantity: 10})

	order, err := s.OrderService.CreateOrder(s.Ctx, 7, []domain.CartLine{
		{ProductID: 1, Quantity: 1},
	})
	s.Require().NoError(err)

	producer, err := kafka.NewProducer(s.KafkaBrokers)
	s.Require().NoError(err)
	defer producer.Close()

	workerCtx, cancel := context.WithCancel(s.Ctx)
	defer cancel()

	processor := worker.NewOutboxProcessor(s.DbPool, s.OutboxRepo, producer, zap.NewNop())
	go processor.Start(workerCtx)

	s.Require().Eventually(func() bool {
		var published int64
		err := s.DbPool.QueryRow(
			s.Ctx,
			`SELECT COUNT(*) FROM outbox WHERE published_at IS NOT NULL`,
		).Scan(&published)
		return err == nil && published == 1
	}, 15*time.Second, 200*time.Millisecond)

	consumer, err := sarama.NewConsumer(s.KafkaBrokers, sarama.NewConfig())
	s.Require().NoError(err)
	defer consumer.Close()

	partitionConsumer, err := consumer.ConsumePartition("order_events", 0, sarama.OffsetOldest)
	s.Require().NoError(err)
	defer partitionConsumer.Close()

	select {
	case msg := <-partitionConsumer.Messages():
		var event struct {
			Event   string `json:"event"`
			Payload struct {
				OrderID int64 `json:"order_id"`
			} `json:"payload"`
		}
		s.Require().NoError(json.Unmarshal(msg.Value, &event))
		s.Require().Equal("OrderCreated", event.Event)
		s.Require().Equal(order.ID, event.Payload.OrderID)
	case <-time.After(15 * time.Second):
		s.FailNow("no message received on order_events")
	}
}

func (s *IntegrationTestSuite) TestCreateOrder_InsufficientStockPersistsNothing() {
	s.Catalog.setProduct(client.ProductSnapshot{ID: 1, Name: "Keyboard", Price: 99999, StockQuantity: 10})
	s.Catalog.setProduct(client.ProductSnapshot{ID: 2, Name: "Mouse", Price: 24999, StockQuantity: 1})

	_, err := s.OrderService.CreateOrder(s.Ctx, 7, []domain.CartLine{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 5},
	})

	s.Require().ErrorIs(err, client.ErrInsufficientStock)
	s.Require().Zero(s.orderCount())

	// The first line's stock stays reserved; there is no compensation.
	s.Require().Equal(int64(8), s.Catalog.stock(1))
	s.Require().Equal(int64(1), s.Catalog.stock(2))
}

func (s *IntegrationTestSuite) TestCreateOrder_UnknownProductPersistsNothing() {
	s.Catalog.setProduct(client.ProductSnapshot{ID: 1, Name: "Keyboard", Price: 99999, StockQuantity: 10})

	_, err := s.OrderService.CreateOrder(s.Ctx, 7, []domain.CartLine{
		{ProductID: 1, Quantity: 1},
		{ProductID: 404, Quantity: 1},
	})

	s.Require().ErrorIs(err, client.ErrProductNotFound)
	s.Require().Zero(s.orderCount())
	// Validation runs before any decrement, so nothing was reserved.
	s.Require().Equal(int64(10), s.Catalog.stock(1))
}

func (s *IntegrationTestSuite) TestListOrders_NewestFirst() {
	s.Catalog.setProduct(client.ProductSnapshot{ID: 1, Name: "Keyboard", Price: 99999, StockQuantity: 10})

	first, err := s.OrderService.CreateOrder(s.Ctx, 7, []domain.CartLine{{ProductID: 1, Quantity: 1}})
	s.Require().NoError(err)

	second, err := s.OrderService.CreateOrder(s.Ctx, 7, []domain.CartLine{{ProductID: 1, Quantity: 2}})
	s.Require().NoError(err)

	orders, err := s.OrderService.ListOrders(s.Ctx, 7)
	s.Require().NoError(err)
	s.Require().Len(orders, 2)
	s.Require().Equal(second.ID, orders[0].ID)
	s.Require().Equal(first.ID, orders[1].ID)

	// Another user sees nothing.
	other, err := s.OrderService.ListOrders(s.Ctx, 8)
	s.Require().NoError(err)
	s.Require().Empty(other)
}
