package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"
	"strings"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/storage"

	"github.com/shopspring/decimal"
)

// Product listing sort keys.
const (
	SortNewest    = "newest"
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
	SortName      = "name"
)

// ProductQuery is a storefront product listing request.
type ProductQuery struct {
	CategoryID *uint
	Search     string
	Sort       string
}

// ProductInput is the admin product form. Numeric fields arrive as form text.
type ProductInput struct {
	ID          uint
	Name        string `label:"Product name" validate:"required,max=255"`
	Description string
	Price       string `label:"Price" validate:"required"`
	Quantity    string `label:"Quantity" validate:"required"`
	CategoryID  string
	ImageURL    string
}

// CategoryInput is the admin category form.
type CategoryInput struct {
	ID          uint
	Name        string `label:"Category name" validate:"required,max=100"`
	Description string
	ImageURL    string
}

// Upload is an image file attached to a product form.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// CatalogService handles business logic related to products and categories.
type CatalogService struct {
	products   repositories.ProductRepository
	categories repositories.CategoryRepository
	disk       storage.Disk
	cache      ProductCache
}

// NewCatalogService creates a new CatalogService. disk may be nil, which disables image uploads.
// cache may be nil when products are read straight from the database.
func NewCatalogService(products repositories.ProductRepository, categories repositories.CategoryRepository, disk storage.Disk, cache ProductCache) *CatalogService {
	return &CatalogService{
		products:   products,
		categories: categories,
		disk:       disk,
		cache:      cache,
	}
}

// ListProducts returns the products matching q in the requested order.
func (s *CatalogService) ListProducts(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	products, err := s.products.Find(ctx, repositories.ProductFilter{
		CategoryID: q.CategoryID,
		Search:     strings.TrimSpace(q.Search),
	})
	if err != nil {
		return nil, err
	}
	sortProducts(products, q.Sort)
	return products, nil
}

func sortProducts(products []models.Product, key string) {
	switch key {
	case SortPriceLow:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price.LessThan(products[j].Price)
		})
	case SortPriceHigh:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price.GreaterThan(products[j].Price)
		})
	case SortName:
		sort.SliceStable(products, func(i, j int) bool {
			return strings.ToLower(products[i].Name) < strings.ToLower(products[j].Name)
		})
	}
}

// GetProduct retrieves a single product by its ID.
func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	return s.products.GetByID(ctx, id)
}

// RelatedProducts returns up to limit other products from the same category.
func (s *CatalogService) RelatedProducts(ctx context.Context, product *models.Product, limit int) ([]models.Product, error) {
	if product.CategoryID == nil {
		return []models.Product{}, nil
	}
	return s.products.Related(ctx, product, limit)
}

// SaveProduct creates the product when in.ID is zero and updates it otherwise.
// A non-nil upload replaces the image URL.
func (s *CatalogService) SaveProduct(ctx context.Context, in ProductInput, upload *Upload) (*models.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Price = strings.TrimSpace(in.Price)
	in.Quantity = strings.TrimSpace(in.Quantity)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(in.Price)
	if err != nil {
		return nil, invalid("Invalid price format")
	}
	if price.IsNegative() {
		return nil, invalid("Price must be at least 0")
	}
	quantity, err := strconv.Atoi(in.Quantity)
	if err != nil {
		return nil, invalid("Invalid quantity format")
	}
	if quantity < 0 {
		return nil, invalid("Quantity must be at least 0")
	}

	var categoryID *uint
	if raw := strings.TrimSpace(in.CategoryID); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, invalid("Invalid category ID")
		}
		category, err := s.categories.GetByID(ctx, uint(id))
		if err != nil {
			return nil, err
		}
		categoryID = &category.ID
	}

	product := &models.Product{}
	if in.ID != 0 {
		if product, err = s.products.GetByID(ctx, in.ID); err != nil {
			return nil, err
		}
	}
	product.Name = in.Name
	product.Description = strings.TrimSpace(in.Description)
	product.Price = price.Round(2)
	product.Quantity = quantity
	product.CategoryID = categoryID
	product.Category = nil
	if imageURL := strings.TrimSpace(in.ImageURL); imageURL != "" {
		product.ImageURL = imageURL
	}
	if upload != nil {
		url, err := s.storeImage(ctx, upload)
		if err != nil {
			return nil, err
		}
		product.ImageURL = url
	}

	if product.ID == 0 {
		err = s.products.Create(ctx, product)
	} else {
		err = s.products.Update(ctx, product)
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *CatalogService) storeImage(ctx context.Context, upload *Upload) (string, error) {
	if s.disk == nil {
		return "", invalid("Image uploads are not enabled")
	}
	key, err := storage.ImageKey(upload.Filename)
	if err != nil {
		return "", invalid("Unsupported image type")
	}
	if err := s.disk.Put(ctx, key, upload.Body, upload.ContentType); err != nil {
		return "", fmt.Errorf("failed to store product image: %w", err)
	}
	log.Printf("Stored product image %s", key)
	return s.disk.URL(key), nil
}

// DeleteProduct deletes a product by its ID.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	return s.products.Delete(ctx, id)
}

// ListCategories returns every category by name.
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories.GetAll(ctx)
}

// GetCategory retrieves a single category by its ID.
func (s *CatalogService) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	return s.categories.GetByID(ctx, id)
}

// SaveCategory creates the category when in.ID is zero and updates it otherwise.
func (s *CatalogService) SaveCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	category := &models.Category{}
	if in.ID != 0 {
		var err error
		if category, err = s.categories.GetByID(ctx, in.ID); err != nil {
			return nil, err
		}
	}
	category.Name = in.Name
	category.Description = strings.TrimSpace(in.Description)
	if imageURL := strings.TrimSpace(in.ImageURL); imageURL != "" {
		category.ImageURL = imageURL
	}

	if category.ID == 0 {
		if err := s.categories.Create(ctx, category); err != nil {
			return nil, err
		}
		return category, nil
	}

	// cached products embed their category
	ids, err := s.productIDsIn(ctx, category.ID)
	if err != nil {
		return nil, err
	}
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, err
	}
	s.invalidate(ctx, ids)
	return category, nil
}

// DeleteCategory removes a category. Its products become uncategorized.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	ids, err := s.productIDsIn(ctx, id)
	if err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, ids)
	return nil
}

func (s *CatalogService) productIDsIn(ctx context.Context, categoryID uint) ([]uint, error) {
	if s.cache == nil {
		return nil, nil
	}
	products, err := s.products.Find(ctx, repositories.ProductFilter{CategoryID: &categoryID})
	if err != nil {
		return nil, fmt.Errorf("failed to list category products: %w", err)
	}
	ids := make([]uint, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (s *CatalogService) invalidate(ctx context.Context, ids []uint) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, ids...)
	}
}

// CategoryProductCounts maps category IDs to the number of products in them.
func (s *CatalogService) CategoryProductCounts(ctx context.Context) (map[uint]int64, error) {
	return s.categories.ProductCounts(ctx)
}
