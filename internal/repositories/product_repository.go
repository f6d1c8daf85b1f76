package repositories

import (
	"context"

	"storefront/internal/models"
)

// ProductFilter narrows a product listing. CategoryID takes precedence over Search.
type ProductFilter struct {
	CategoryID *uint
	Search     string
}

// ProductRepository defines the interface for product data access.
// Returned products have their Category loaded.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	Find(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	Related(ctx context.Context, product *models.Product, limit int) ([]models.Product, error)
	ListLowStock(ctx context.Context, max int) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uint) error
	// DecrementStock subtracts qty only if at least qty units remain.
	DecrementStock(ctx context.Context, id uint, qty int) error
	Count(ctx context.Context) (int64, error)
	// CountStockBetween counts products whose quantity lies in [min, max].
	CountStockBetween(ctx context.Context, min, max int) (int64, error)
}

// CategoryRepository defines the interface for category data access.
type CategoryRepository interface {
	GetAll(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uint) error
	ProductCounts(ctx context.Context) (map[uint]int64, error)
}
