package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	productsAllKey  = "storefront:products:all"
	notFoundMarker  = "notfound"
	productCacheTag = "products"
)

func productKey(id uint) string {
	return fmt.Sprintf("storefront:product:%d", id)
}

func categoryProductsKey(id uint) string {
	return fmt.Sprintf("storefront:products:category:%d", id)
}

// CachedProductRepository caches product reads in redis in front of another ProductRepository.
// Writes go to the wrapped repository and invalidate the affected keys.
type CachedProductRepository struct {
	ProductRepository
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedProductRepository wraps next with a redis read-through cache.
func NewCachedProductRepository(next ProductRepository, rdb *redis.Client) *CachedProductRepository {
	return &CachedProductRepository{
		ProductRepository: next,
		redis:             rdb,
		ttl:               5 * time.Minute,
	}
}

// GetByID serves the product from cache, remembering misses for a minute.
func (c *CachedProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	key := productKey(id)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			metrics.RecordCache(productCacheTag, true)
			return nil, &NotFoundError{Entity: "product", Key: id}
		}
		var product models.Product
		if err := json.Unmarshal(data, &product); err != nil {
			log.Printf("Failed to unmarshal cached product (continuing with DB): %v", err)
			break
		}
		metrics.RecordCache(productCacheTag, true)
		return &product, nil
	case errors.Is(err, redis.Nil):
	default:
		log.Printf("Redis error (continuing with DB): %v", err)
	}
	metrics.RecordCache(productCacheTag, false)

	product, err := c.ProductRepository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if setErr := c.redis.Set(ctx, key, notFoundMarker, time.Minute).Err(); setErr != nil {
				log.Printf("Failed to cache notfound: %v", setErr)
			}
		}
		return nil, err
	}
	c.store(ctx, key, product)
	return product, nil
}

// GetAll serves the full listing from cache.
func (c *CachedProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	return c.cachedList(ctx, productsAllKey, func() ([]models.Product, error) {
		return c.ProductRepository.GetAll(ctx)
	})
}

// Find caches unfiltered and category listings; searches always hit the database.
func (c *CachedProductRepository) Find(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	switch {
	case filter.CategoryID != nil:
		return c.cachedList(ctx, categoryProductsKey(*filter.CategoryID), func() ([]models.Product, error) {
			return c.ProductRepository.Find(ctx, filter)
		})
	case filter.Search == "":
		return c.GetAll(ctx)
	}
	return c.ProductRepository.Find(ctx, filter)
}

func (c *CachedProductRepository) cachedList(ctx context.Context, key string, load func() ([]models.Product, error)) ([]models.Product, error) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		var products []models.Product
		if err := json.Unmarshal(data, &products); err == nil {
			metrics.RecordCache(productCacheTag, true)
			return products, nil
		}
		log.Printf("Failed to unmarshal cached products (continuing with DB): %v", err)
	} else if !errors.Is(err, redis.Nil) {
		log.Printf("Redis error: %v (continuing with DB)", err)
	}
	metrics.RecordCache(productCacheTag, false)

	products, err := load()
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, products)
	return products, nil
}

func (c *CachedProductRepository) store(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Failed to marshal %s: %v", key, err)
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("Failed to cache %s: %v", key, err)
	}
}

// Create creates the product and drops cached listings.
func (c *CachedProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := c.ProductRepository.Create(ctx, product); err != nil {
		return err
	}
	c.invalidate(ctx, product.ID, product.CategoryID)
	return nil
}

// Update updates the product and drops its entry plus the old and new category listings.
func (c *CachedProductRepository) Update(ctx context.Context, product *models.Product) error {
	old, err := c.ProductRepository.GetByID(ctx, product.ID)
	if err != nil {
		c.Invalidate(ctx, product.ID)
		return err
	}
	if err := c.ProductRepository.Update(ctx, product); err != nil {
		return err
	}
	c.invalidate(ctx, product.ID, old.CategoryID)
	if product.CategoryID != nil {
		c.invalidate(ctx, product.ID, product.CategoryID)
	}
	return nil
}

// Delete deletes the product and drops every listing that could contain it.
func (c *CachedProductRepository) Delete(ctx context.Context, id uint) error {
	old, err := c.ProductRepository.GetByID(ctx, id)
	if err != nil {
		c.Invalidate(ctx, id)
		return err
	}
	if err := c.ProductRepository.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id, old.CategoryID)
	return nil
}

// DecrementStock updates stock and drops the product's cached entries.
func (c *CachedProductRepository) DecrementStock(ctx context.Context, id uint, qty int) error {
	if err := c.ProductRepository.DecrementStock(ctx, id, qty); err != nil {
		return err
	}
	c.Invalidate(ctx, id)
	return nil
}

// Invalidate drops the cached entries of the given products and every cached listing.
func (c *CachedProductRepository) Invalidate(ctx context.Context, ids ...uint) {
	keys := []string{productsAllKey}
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		log.Printf("Failed to delete product cache: %v", err)
	}
	c.dropCategoryListings(ctx)
}

func (c *CachedProductRepository) invalidate(ctx context.Context, id uint, categoryID *uint) {
	keys := []string{productsAllKey, productKey(id)}
	if categoryID != nil {
		keys = append(keys, categoryProductsKey(*categoryID))
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		log.Printf("Failed to delete product cache: %v", err)
	}
}

func (c *CachedProductRepository) dropCategoryListings(ctx context.Context) {
	iter := c.redis.Scan(ctx, 0, "storefront:products:category:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("Failed to scan category cache: %v", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		log.Printf("Failed to delete category cache: %v", err)
	}
}
