package repositories

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

func (r *GORMProductRepository) query(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Category").Order("products.created_at DESC").Order("products.id DESC")
}

// GetAll retrieves all products from the database, newest first.
func (r *GORMProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.query(ctx).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// Find retrieves products matching filter, newest first.
func (r *GORMProductRepository) Find(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	q := r.query(ctx)
	switch {
	case filter.CategoryID != nil:
		q = q.Where("category_id = ?", *filter.CategoryID)
	case strings.TrimSpace(filter.Search) != "":
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, id).Error; err != nil {
		return nil, translate(err, "product", id, "get")
	}
	return &product, nil
}

// Related returns products from the same category, excluding product itself.
func (r *GORMProductRepository) Related(ctx context.Context, product *models.Product, limit int) ([]models.Product, error) {
	q := r.query(ctx).Where("products.id <> ?", product.ID)
	if product.CategoryID != nil {
		q = q.Where("category_id = ?", *product.CategoryID)
	}
	var products []models.Product
	if err := q.Limit(limit).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get related products: %w", err)
	}
	return products, nil
}

// ListLowStock returns products with at most max units, lowest stock first.
func (r *GORMProductRepository) ListLowStock(ctx context.Context, max int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Preload("Category").
		Where("quantity <= ?", max).
		Order("quantity ASC").Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	return products, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update updates an existing product in the database.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	var existing models.Product
	if err := r.db.WithContext(ctx).Select("id").First(&existing, product.ID).Error; err != nil {
		return translate(err, "product", product.ID, "update")
	}
	err := r.db.WithContext(ctx).Model(product).
		Select("name", "description", "price", "quantity", "image_url", "category_id").
		Updates(product).Error
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

// Delete deletes a product by its ID, removing it from carts and detaching order history.
func (r *GORMProductRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to remove product from carts: %w", err)
		}
		if err := tx.Model(&models.OrderItem{}).Where("product_id = ?", id).Update("product_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach order items: %w", err)
		}
		res := tx.Delete(&models.Product{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete product: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Entity: "product", Key: id}
		}
		return nil
	})
}

// DecrementStock subtracts qty from the product's stock if enough remains.
func (r *GORMProductRepository) DecrementStock(ctx context.Context, id uint, qty int) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND quantity >= ?", id, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return fmt.Errorf("failed to decrement stock for product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %d: %w", id, ErrStockConflict)
	}
	return nil
}

// Count returns the number of products.
func (r *GORMProductRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// CountStockBetween counts products whose quantity lies in [min, max].
func (r *GORMProductRepository) CountStockBetween(ctx context.Context, min, max int) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("quantity >= ? AND quantity <= ?", min, max).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count products by stock: %w", err)
	}
	return n, nil
}
