package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
)

// PaymentMethodCOD is cash on delivery; finalizing with it keeps the order PENDING.
const PaymentMethodCOD = "cod"

// Pricing holds the checkout charges added on top of the cart subtotal.
type Pricing struct {
	ShippingFee decimal.Decimal
	TaxRate     decimal.Decimal
}

// Totals is the price breakdown of a checkout.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Totals applies shipping and tax to subtotal. Tax is rounded to cents.
func (p Pricing) Totals(subtotal decimal.Decimal) Totals {
	tax := subtotal.Mul(p.TaxRate).Round(2)
	return Totals{
		Subtotal: subtotal,
		Shipping: p.ShippingFee,
		Tax:      tax,
		Total:    subtotal.Add(p.ShippingFee).Add(tax),
	}
}

// CheckoutSummary is the cart as it will be ordered.
type CheckoutSummary struct {
	Items  []models.CartItem
	Totals Totals
}

// PlaceOrderInput is the checkout form.
type PlaceOrderInput struct {
	UserID          uint
	ShippingAddress string `label:"Shipping address" validate:"required,max=500"`
	PaymentMethod   string `label:"Payment method" validate:"max=50"`
	// ClientTotal is the total the browser displayed. It is only compared, never trusted.
	ClientTotal *decimal.Decimal
}

// OrderService handles business logic related to checkout and orders.
type OrderService struct {
	uow       repositories.UnitOfWork
	orders    repositories.OrderRepository
	carts     repositories.CartRepository
	pricing   Pricing
	publisher EventPublisher
	cache     ProductCache
}

// NewOrderService creates a new OrderService. publisher and cache may be nil.
func NewOrderService(repos repositories.Repositories, uow repositories.UnitOfWork, pricing Pricing, publisher EventPublisher, cache ProductCache) *OrderService {
	return &OrderService{
		uow:       uow,
		orders:    repos.Orders,
		carts:     repos.Carts,
		pricing:   pricing,
		publisher: publisher,
		cache:     cache,
	}
}

// Summary returns the user's cart with shipping and tax applied.
func (s *OrderService) Summary(ctx context.Context, userID uint) (*CheckoutSummary, error) {
	items, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &CheckoutSummary{Items: items, Totals: s.pricing.Totals(subtotal(items))}, nil
}

// PlaceOrder converts the user's cart into a PENDING order in one transaction:
// stock is checked and decremented, prices are snapshotted and the cart is emptied.
// Nothing is written when any line cannot be covered.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	in.ShippingAddress = strings.TrimSpace(in.ShippingAddress)
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.uow.Do(ctx, func(tx repositories.Repositories) error {
		user, err := tx.Users.GetByID(ctx, in.UserID)
		if err != nil {
			return err
		}
		items, err := tx.Carts.ListByUser(ctx, user.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		order = &models.Order{
			UserID:          &user.ID,
			ShippingAddress: in.ShippingAddress,
			Status:          models.StatusPending,
			PaymentMethod:   in.PaymentMethod,
		}
		for i := range items {
			item := &items[i]
			if !item.Product.HasSufficientStock(item.Quantity) {
				return insufficient(item, item.Product.Quantity)
			}
			productID := item.ProductID
			order.Items = append(order.Items, models.OrderItem{
				ProductID:   &productID,
				ProductName: item.Product.Name,
				Quantity:    item.Quantity,
				Price:       item.Product.Price,
			})
		}
		order.TotalAmount = s.pricing.Totals(subtotal(items)).Total

		if err := tx.Orders.Create(ctx, order); err != nil {
			return err
		}
		for i := range items {
			err := tx.Products.DecrementStock(ctx, items[i].ProductID, items[i].Quantity)
			if errors.Is(err, repositories.ErrStockConflict) {
				current, lookupErr := tx.Products.GetByID(ctx, items[i].ProductID)
				if lookupErr != nil {
					return insufficient(&items[i], 0)
				}
				return insufficient(&items[i], current.Quantity)
			}
			if err != nil {
				return err
			}
		}
		return tx.Carts.DeleteByUser(ctx, user.ID)
	})
	if err != nil {
		return nil, err
	}

	if in.ClientTotal != nil && !in.ClientTotal.Equal(order.TotalAmount) {
		log.Printf("Order %d: client total %s differs from computed total %s; using computed total",
			order.ID, in.ClientTotal.StringFixed(2), order.TotalAmount.StringFixed(2))
	}
	metrics.OrdersPlaced.Inc()
	log.Printf("Order %d created for user %d with %d items", order.ID, in.UserID, len(order.Items))

	event := newOrderEvent(order, "")
	if s.cache != nil {
		s.cache.Invalidate(ctx, event.ProductIDs()...)
	}
	publish(s.publisher, EventOrderCreated, event)
	return order, nil
}

func insufficient(item *models.CartItem, available int) error {
	return &InsufficientStockError{
		ProductID:   item.ProductID,
		ProductName: item.Product.Name,
		Available:   available,
		Requested:   item.Quantity,
	}
}

// GetOrder retrieves a single order with its items.
func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// ListOrders returns orders newest first, optionally limited to one status.
func (s *OrderService) ListOrders(ctx context.Context, status *models.OrderStatus) ([]models.Order, error) {
	var filter repositories.OrderFilter
	if status != nil {
		filter.Statuses = []models.OrderStatus{*status}
	}
	return s.orders.Find(ctx, filter)
}

func (s *OrderService) ownedOrder(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(userID) {
		return nil, ErrNotOwner
	}
	return order, nil
}

// ConfirmOrder moves the user's order to PROCESSING.
func (s *OrderService) ConfirmOrder(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	order, err := s.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, order, models.StatusProcessing); err != nil {
		return nil, err
	}
	return order, nil
}

// FinalizePayment records how the user paid. Cash on delivery keeps the order
// PENDING, any other method moves it to PROCESSING.
func (s *OrderService) FinalizePayment(ctx context.Context, userID, orderID uint, method, paymentID string) (*models.Order, error) {
	order, err := s.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	method = strings.TrimSpace(method)
	next := models.StatusProcessing
	if method == PaymentMethodCOD {
		next = models.StatusPending
	}
	if err := s.RecordPayment(ctx, order, method, strings.TrimSpace(paymentID), next); err != nil {
		return nil, err
	}
	return order, nil
}

// RecordPayment stores the payment details and moves the order to next.
// Empty method or paymentID keep the stored values.
func (s *OrderService) RecordPayment(ctx context.Context, order *models.Order, method, paymentID string, next models.OrderStatus) error {
	previous := order.Status
	if err := order.TransitionTo(next); err != nil {
		return err
	}
	if method == "" {
		method = order.PaymentMethod
	}
	if paymentID == "" {
		paymentID = order.PaymentID
	}
	if err := s.orders.UpdatePayment(ctx, order.ID, method, paymentID, next); err != nil {
		order.Status = previous
		return fmt.Errorf("failed to record payment for order %d: %w", order.ID, err)
	}
	order.PaymentMethod = method
	order.PaymentID = paymentID
	s.statusChanged(order, previous)
	return nil
}

// ChangeStatus is the admin status override. The lifecycle table still applies.
func (s *OrderService) ChangeStatus(ctx context.Context, orderID uint, next models.OrderStatus) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, order, next); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) transition(ctx context.Context, order *models.Order, next models.OrderStatus) error {
	previous := order.Status
	if err := order.TransitionTo(next); err != nil {
		return err
	}
	if previous == next {
		return nil
	}
	if err := s.orders.UpdateStatus(ctx, order.ID, next); err != nil {
		order.Status = previous
		return fmt.Errorf("failed to update order status for order %d: %w", order.ID, err)
	}
	s.statusChanged(order, previous)
	return nil
}

func (s *OrderService) statusChanged(order *models.Order, previous models.OrderStatus) {
	if previous == order.Status {
		return
	}
	log.Printf("Order %d status changed from %s to %s", order.ID, previous, order.Status)
	publish(s.publisher, EventOrderStatusChanged, newOrderEvent(order, previous))
}
