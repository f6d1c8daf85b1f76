package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"storefront/internal/database"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// recordingPublisher captures published order events.
type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []services.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishJSON(routingKey string, v interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, routingKey)
	p.events = append(p.events, v.(services.OrderEvent))
	return nil
}

// recordingCache captures invalidated product IDs.
type recordingCache struct {
	mu  sync.Mutex
	ids []uint
}

func (c *recordingCache) Invalidate(ctx context.Context, ids ...uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, ids...)
}

type fixture struct {
	db        *gorm.DB
	repos     repositories.Repositories
	publisher *recordingPublisher
	cache     *recordingCache
	carts     *services.CartService
	orders    *services.OrderService
}

var testPricing = services.Pricing{
	ShippingFee: decimal.RequireFromString("5.99"),
	TaxRate:     decimal.RequireFromString("0.10"),
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })

	repos := repositories.NewGORMRepositories(db)
	f := &fixture{
		db:        db,
		repos:     repos,
		publisher: &recordingPublisher{},
		cache:     &recordingCache{},
	}
	f.carts = services.NewCartService(repos.Carts, repos.Products)
	f.orders = services.NewOrderService(repos, repositories.NewGORMUnitOfWork(db), testPricing, f.publisher, f.cache)
	return f
}

func (f *fixture) user(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hash",
		FullName: "Test " + username,
		Role:     models.RoleCustomer,
	}
	if err := f.repos.Users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func (f *fixture) category(t *testing.T, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name}
	if err := f.repos.Categories.Create(context.Background(), category); err != nil {
		t.Fatalf("failed to create category: %v", err)
	}
	return category
}

func (f *fixture) product(t *testing.T, name, price string, qty int, category *models.Category) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, Price: decimal.RequireFromString(price), Quantity: qty}
	if category != nil {
		product.CategoryID = &category.ID
	}
	if err := f.repos.Products.Create(context.Background(), product); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}
	return product
}

func (f *fixture) stock(t *testing.T, productID uint) int {
	t.Helper()
	product, err := f.repos.Products.GetByID(context.Background(), productID)
	if err != nil {
		t.Fatalf("failed to reload product: %v", err)
	}
	return product.Quantity
}

// placeOrder adds one product to the user's cart and checks out.
func (f *fixture) placeOrder(t *testing.T, user *models.User, product *models.Product, qty int) *models.Order {
	t.Helper()
	ctx := context.Background()
	if _, err := f.carts.Add(ctx, user.ID, product.ID, qty); err != nil {
		t.Fatalf("failed to add to cart: %v", err)
	}
	order, err := f.orders.PlaceOrder(ctx, services.PlaceOrderInput{UserID: user.ID, ShippingAddress: "123 Main St"})
	if err != nil {
		t.Fatalf("failed to place order: %v", err)
	}
	return order
}
