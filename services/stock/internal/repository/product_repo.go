package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/leandroAntunes00/e-commerce-microservice/pkg/mylogger"
	"github.com/leandroAntunes00/e-commerce-microservice/services/stock/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// StockLevel captures a single stock mutation for event reporting.
type StockLevel struct {
	ProductName   string
	PreviousStock int32
	NewStock      int32
}

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	ReserveStock(ctx context.Context, productID int64, quantity int32) (*StockLevel, error)
	ReleaseStock(ctx context.Context, productID int64, quantity int32) (*StockLevel, error)
	UpdateStock(ctx context.Context, productID int64, quantity int32) (*StockLevel, error)
}

type productRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewProductRepository(pool *pgxpool.Pool, logger *zap.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("stock-repository"),
	}
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	ctx, span := r.tracer.Start(ctx, "repository.CreateProduct")
	defer span.End()

	query := `INSERT INTO products (name, description, price, stock_quantity)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id, is_active, created_at`

	err := r.pool.QueryRow(ctx, query,
		product.Name,
		product.Description,
		product.Price,
		product.StockQuantity,
	).Scan(&product.ID, &product.IsActive, &product.CreatedAt)
	if err != nil {
		mylogger.Error(ctx, r.logger, "Failed to insert product", zap.Error(err))
		return fmt.Errorf("failed to insert product: %w", err)
	}

	span.SetAttributes(attribute.Int64("product.id", product.ID))
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "repository.GetProductByID")
	defer span.End()

	// Deactivated products read as missing.
	query := `SELECT id, name, description, price, stock_quantity, is_active, created_at, updated_at
			  FROM products WHERE id = $1 AND is_active`

	var p domain.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		mylogger.Error(ctx, r.logger, "Failed to query product", zap.Error(err))
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

func (r *productRepository) List(ctx context.Context) ([]domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "repository.ListProducts")
	defer span.End()

	query := `SELECT id, name, description, price, stock_quantity, is_active, created_at, updated_at
			  FROM products WHERE is_active ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		mylogger.Error(ctx, r.logger, "Failed to list products", zap.Error(err))
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// ReserveStock decrements stock only when enough is available. The guard
// lives in the UPDATE itself so concurrent reservations cannot oversell.
func (r *productRepository) ReserveStock(ctx context.Context, productID int64, quantity int32) (*StockLevel, error) {
	ctx, span := r.tracer.Start(ctx, "repository.ReserveStock")
	defer span.End()

	query := `UPDATE products
			  SET stock_quantity = stock_quantity - $2, updated_at = NOW()
			  WHERE id = $1 AND is_active AND stock_quantity >= $2
			  RETURNING name, stock_quantity + $2, stock_quantity`

	level := &StockLevel{}
	err := r.pool.QueryRow(ctx, query, productID, quantity).Scan(
		&level.ProductName, &level.PreviousStock, &level.NewStock,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing or deactivated product from a present
			// one without enough stock.
			if _, getErr := r.GetByID(ctx, productID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInsufficientStock
		}
		mylogger.Error(ctx, r.logger, "Failed to reserve stock", zap.Error(err))
		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}

	span.SetAttributes(
		attribute.Int64("product.id", productID),
		attribute.Int("stock.reserved", int(quantity)),
	)
	return level, nil
}

// UpdateStock sets the absolute stock level of an active product. The old
// row is locked and read in the same statement so the reported previous
// level cannot race a concurrent reservation.
func (r *productRepository) UpdateStock(ctx context.Context, productID int64, quantity int32) (*StockLevel, error) {
	ctx, span := r.tracer.Start(ctx, "repository.UpdateStock")
	defer span.End()

	query := `UPDATE products p
			  SET stock_quantity = $2, updated_at = NOW()
			  FROM (SELECT id, stock_quantity FROM products WHERE id = $1 AND is_active FOR UPDATE) old
			  WHERE p.id = old.id
			  RETURNING p.name, old.stock_quantity, p.stock_quantity`

	level := &StockLevel{}
	err := r.pool.QueryRow(ctx, query, productID, quantity).Scan(
		&level.ProductName, &level.PreviousStock, &level.NewStock,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		mylogger.Error(ctx, r.logger, "Failed to update stock", zap.Error(err))
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}

	span.SetAttributes(
		attribute.Int64("product.id", productID),
		attribute.Int("stock.new", int(quantity)),
	)
	return level, nil
}

// ReleaseStock adds quantity back unconditionally.
func (r *productRepository) ReleaseStock(ctx context.Context, productID int64, quantity int32) (*StockLevel, error) {
	ctx, span := r.tracer.Start(ctx, "repository.ReleaseStock")
	defer span.End()

	query := `UPDATE products
			  SET stock_quantity = stock_quantity + $2, updated_at = NOW()
			  WHERE id = $1
			  RETURNING name, stock_quantity - $2, stock_quantity`

	level := &StockLevel{}
	err := r.pool.QueryRow(ctx, query, productID, quantity).Scan(
		&level.ProductName, &level.PreviousStock, &level.NewStock,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		mylogger.Error(ctx, r.logger, "Failed to release stock", zap.Error(err))
		return nil, fmt.Errorf("failed to release stock: %w", err)
	}

	return level, nil
}
