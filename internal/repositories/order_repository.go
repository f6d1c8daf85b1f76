package repositories

import (
	"context"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// OrderFilter narrows an order listing. Zero values match everything.
type OrderFilter struct {
	Statuses []models.OrderStatus
	From     time.Time // inclusive
	To       time.Time // exclusive
}

// OrderRepository defines the interface for order data access.
// Returned orders have their User and Items loaded.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	Find(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	ListRecent(ctx context.Context, limit int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) error
	UpdatePayment(ctx context.Context, id uint, method, paymentID string, status models.OrderStatus) error
	Count(ctx context.Context, filter OrderFilter) (int64, error)
	CountByStatus(ctx context.Context) (map[models.OrderStatus]int64, error)
	// SumTotals adds up TotalAmount over matching orders.
	SumTotals(ctx context.Context, filter OrderFilter) (decimal.Decimal, error)
}
