package repositories

import (
	"context"
	"fmt"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

func (r *GORMOrderRepository) scoped(ctx context.Context, filter OrderFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if !filter.From.IsZero() {
		q = q.Where("order_date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("order_date < ?", filter.To)
	}
	return q
}

func withDetails(q *gorm.DB) *gorm.DB {
	return q.Preload("User").Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_items.id ASC")
	}).Preload("Items.Product.Category")
}

// Create creates a new order and its items in the database.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves an order with its user and items.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := withDetails(r.db.WithContext(ctx)).First(&order, id).Error; err != nil {
		return nil, translate(err, "order", id, "get")
	}
	return &order, nil
}

// Find retrieves orders matching filter, newest first.
func (r *GORMOrderRepository) Find(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	var orders []models.Order
	err := withDetails(r.scoped(ctx, filter)).
		Order("order_date DESC").Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find orders: %w", err)
	}
	return orders, nil
}

// ListRecent returns up to limit orders, newest first.
func (r *GORMOrderRepository) ListRecent(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).Preload("User").
		Order("order_date DESC").Order("id DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus sets the status of an order.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) error {
	return r.update(ctx, id, map[string]interface{}{"status": status})
}

// UpdatePayment records the payment method and reference together with the new status.
func (r *GORMOrderRepository) UpdatePayment(ctx context.Context, id uint, method, paymentID string, status models.OrderStatus) error {
	return r.update(ctx, id, map[string]interface{}{
		"payment_method": method,
		"payment_id":     paymentID,
		"status":         status,
	})
}

func (r *GORMOrderRepository) update(ctx context.Context, id uint, values map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("failed to update order %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to update order %d: %w", id, err)
		}
		if n == 0 {
			return &NotFoundError{Entity: "order", Key: id}
		}
	}
	return nil
}

// Count returns the number of orders matching filter.
func (r *GORMOrderRepository) Count(ctx context.Context, filter OrderFilter) (int64, error) {
	var n int64
	if err := r.scoped(ctx, filter).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return n, nil
}

// CountByStatus returns the number of orders in each status, including zero counts.
func (r *GORMOrderRepository) CountByStatus(ctx context.Context) (map[models.OrderStatus]int64, error) {
	var rows []struct {
		Status models.OrderStatus
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	counts := make(map[models.OrderStatus]int64, len(models.AllOrderStatuses))
	for _, s := range models.AllOrderStatuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// SumTotals adds up TotalAmount over matching orders.
func (r *GORMOrderRepository) SumTotals(ctx context.Context, filter OrderFilter) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	if err := r.scoped(ctx, filter).Select("SUM(total_amount)").Row().Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum order totals: %w", err)
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal.Round(2), nil
}
