package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/leandroAntunes00/e-commerce-microservice/pkg/messaging"
	"github.com/leandroAntunes00/e-commerce-microservice/services/stock/internal/domain"
	"github.com/redis/go-redis/v9"
)

type cachedStockService struct {
	next        StockService
	redisClient *redis.Client
	cacheTTL    time.Duration
}

// NewCachedStockService decorates a StockService with a read-through redis
// cache for product lookups. Stock mutations evict the affected keys.
func NewCachedStockService(next StockService, redisClient *redis.Client) StockService {
	return &cachedStockService{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    time.Minute * 10,
	}
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (s *cachedStockService) CreateProduct(ctx context.Context, input NewProduct) (*domain.Product, error) {
	return s.next.CreateProduct(ctx, input)
}

func (s *cachedStockService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	key := productKey(id)

	if val, err := s.redisClient.Get(ctx, key).Result(); err == nil {
		var product domain.Product
		if err := json.Unmarshal([]byte(val), &product); err == nil {
			return &product, nil
		}
	}

	product, err := s.next.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		s.redisClient.Set(ctx, key, data, s.cacheTTL)
	}

	return product, nil
}

func (s *cachedStockService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.next.ListProducts(ctx)
}

func (s *cachedStockService) UpdateStock(ctx context.Context, productID int64, quantity int32) error {
	if err := s.next.UpdateStock(ctx, productID, quantity); err != nil {
		return err
	}
	s.redisClient.Del(ctx, productKey(productID))
	return nil
}

func (s *cachedStockService) HandleOrderCreated(ctx context.Context, event messaging.OrderCreated) error {
	if err := s.next.HandleOrderCreated(ctx, event); err != nil {
		return err
	}
	s.evictItems(ctx, event.Items)
	return nil
}

func (s *cachedStockService) HandleOrderCancelled(ctx context.Context, event messaging.OrderCancelled) error {
	if err := s.next.HandleOrderCancelled(ctx, event); err != nil {
		return err
	}
	s.evictItems(ctx, event.Items)
	return nil
}

func (s *cachedStockService) evictItems(ctx context.Context, items []messaging.OrderItemEvent) {
	for _, item := range items {
		s.redisClient.Del(ctx, productKey(item.ProductID))
	}
}
