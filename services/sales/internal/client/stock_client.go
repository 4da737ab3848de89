package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/leandroAntunes00/e-commerce-microservice/pkg/utils"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var ErrProductNotFound = errors.New("product not found in stock service")

// Product is the stock service's view of a product, used only for pricing
// and naming during order creation. Reservation is event-driven, never done
// through this client.
type Product struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Price         int64  `json:"price"`
	StockQuantity int64  `json:"stock_quantity"`
}

type StockClient interface {
	GetProduct(ctx context.Context, productID int64) (*Product, error)
}

type stockClient struct {
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

type productEnvelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Product *Product `json:"product"`
}

func NewStockClient(baseURL string, logger *zap.Logger) StockClient {
	settings := gobreaker.Settings{
		Name:        "StockService",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		// A missing product is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrProductNotFound)
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

	return &stockClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 3 * time.Second},
		cb:         gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
	}
}

func (c *stockClient) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	return utils.ExecuteWithBreaker(c.cb, func() (*Product, error) {
		return c.getProduct(ctx, productID)
	})
}

func (c *stockClient) getProduct(ctx context.Context, productID int64) (*Product, error) {
	url := fmt.Sprintf("%s/api/stock/products/%d", c.baseURL, productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build product request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call stock service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrProductNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stock service returned status %d", resp.StatusCode)
	}

	var envelope productEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode stock response: %w", err)
	}
	if !envelope.Success || envelope.Product == nil {
		return nil, ErrProductNotFound
	}

	return envelope.Product, nil
}
