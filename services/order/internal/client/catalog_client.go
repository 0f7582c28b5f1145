package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/token"
	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/utils"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ProductSnapshot is the read-only view of a catalog product. It is valid
// only for the request that fetched it; a decrement returns the fresh
// value, never a cached one.
type ProductSnapshot struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	StockQuantity int64  `json:"stock_quantity"`
	Category      string `json:"category"`
}

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

type InsufficientStockError struct {
	ProductID int64
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf(
		"insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available,
	)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

type Client interface {
	Fetch(ctx context.Context, productID int64) (*ProductSnapshot, error)
	Decrement(ctx context.Context, productID, quantity int64) (*ProductSnapshot, error)
}

type httpClient struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) Client {
	settings := gobreaker.Settings{
		Name:        "CatalogService",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		// Only infrastructure failures trip the breaker; a missing
		// product or an empty shelf is a healthy answer.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrCatalogUnavailable)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(
				"Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		cb:      gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

func (c *httpClient) Fetch(ctx context.Context, productID int64) (*ProductSnapshot, error) {
	snapshot, err := utils.ExecuteWithBreaker(c.cb, func() (*ProductSnapshot, error) {
		return c.fetch(ctx, productID)
	})

	return snapshot, c.classifyBreakerError(err)
}

func (c *httpClient) Decrement(ctx context.Context, productID, quantity int64) (*ProductSnapshot, error) {
	snapshot, err := utils.ExecuteWithBreaker(c.cb, func() (*ProductSnapshot, error) {
		return c.decrement(ctx, productID, quantity)
	})

	return snapshot, c.classifyBreakerError(err)
}

func (c *httpClient) classifyBreakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: circuit breaker open", ErrCatalogUnavailable)
	}

	return err
}

type productResponse struct {
	Product ProductSnapshot `json:"product"`
}

type stockConflictResponse struct {
	Requested int64 `json:"requested"`
	Available int64 `json:"available"`
}

func (c *httpClient) fetch(ctx context.Context, productID int64) (*ProductSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/products/%d", c.baseURL, productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Fail closed: a timed-out read is a failed read.
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var out productResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("%w: decoding response: %v", ErrCatalogUnavailable, err)
		}
		return &out.Product, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("product %d: %w", productID, ErrProductNotFound)
	default:
		return nil, fmt.Errorf("%w: catalog returned status %d", ErrCatalogUnavailable, resp.StatusCode)
	}
}

func (c *httpClient) decrement(ctx context.Context, productID, quantity int64) (*ProductSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/products/%d/decrease-stock", c.baseURL, productID)

	body, err := json.Marshal(map[string]int64{"quantity": quantity})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	if credential, ok := token.CredentialFromContext(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// A decrement that timed out is never assumed applied; the
		// order attempt fails and the caller may retry the whole cart.
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var out productResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("%w: decoding response: %v", ErrCatalogUnavailable, err)
		}
		return &out.Product, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("product %d: %w", productID, ErrProductNotFound)
	case http.StatusConflict:
		var out stockConflictResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("%w: decoding response: %v", ErrCatalogUnavailable, err)
		}
		return nil, &InsufficientStockError{
			ProductID: productID,
			Requested: out.Requested,
			Available: out.Available,
		}
	default:
		return nil, fmt.Errorf("%w: catalog returned status %d", ErrCatalogUnavailable, resp.StatusCode)
	}
}
