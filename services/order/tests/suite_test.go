package tests

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/cache"
	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/testsuite"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/client"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/repository"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/service"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	outboxRepository "github.com/Sukhmangill23/E-Commerce-Microservices/pkg/outbox/repository"
	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/outbox/worker"
)

// catalogStub serves the two catalog endpoints the order service calls,
// backed by an in-memory product table.
type catalogStub struct {
	mu       sync.Mutex
	products map[int64]client.ProductSnapshot
	server   *httptest.Server
}

func newCatalogStub() *catalogStub {
	stub := &catalogStub{products: map[int64]client.ProductSnapshot{}}
	stub.server = httptest.NewServer(http.HandlerFunc(stub.handle))
	return stub
}

func (s *catalogStub) setProduct(p client.ProductSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *catalogStub) stock(id int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].StockQuantity
}

func (s *catalogStub) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = map[int64]client.ProductSnapshot{}
}

func (s *catalogStub) handle(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 3 || parts[0] != "api" || parts[1] != "products" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "product not found"})
		return
	}

	if r.Method == http.MethodGet {
		_ = json.NewEncoder(w).Encode(map[string]any{"product": product})
		return
	}

	var body struct {
		Quantity int64 `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if product.StockQuantity < body.Quantity {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":      "insufficient stock",
			"product_id": id,
			"requested":  body.Quantity,
			"available":  product.StockQuantity,
		})
		return
	}

	product.StockQuantity -= body.Quantity
	s.products[id] = product

	_ = json.NewEncoder(w).Encode(map[string]any{"product": product})
}

type IntegrationTestSuite struct {
	testsuite.BaseSuite

	Catalog      *catalogStub
	OutboxRepo   worker.OutboxRepository
	OrderRepo    repository.OrderRepository
	OrderService service.OrderService
}

func (s *IntegrationTestSuite) SetupSuite() {
	s.BaseSuite.SetupInfrastructure("../migrations", true)
	s.Catalog = newCatalogStub()
}

func (s *IntegrationTestSuite) TearDownSuite() {
	s.Catalog.server.Close()
	s.BaseSuite.TearDownInfrastructure()
}

func (s *IntegrationTestSuite) SetupTest() {
	s.BaseSuite.TruncateTable("orders")
	s.BaseSuite.TruncateTable("outbox")
	s.Catalog.reset()

	logger := zap.NewNop()
	s.OutboxRepo = outboxRepository.NewOutboxRepository(s.DbPool, logger)
	s.OrderRepo = repository.NewOrderRepository(s.DbPool, s.OutboxRepo, logger)
	s.OrderService = service.NewOrderService(
		s.OrderRepo,
		client.NewHTTPClient(s.Catalog.server.URL, 5*time.Second, logger),
		cache.NewMemory(),
		logger,
	)
}

func (s *IntegrationTestSuite) orderCount() int64 {
	var count int64
	err := s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM orders`).Scan(&count)
	s.Require().NoError(err)
	return count
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationTestSuite))
}
