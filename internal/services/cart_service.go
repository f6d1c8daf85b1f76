package services

import (
	"context"
	"errors"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
)

// Cart is a user's cart lines with their products loaded.
type Cart struct {
	Items []models.CartItem
	Total decimal.Decimal
}

// subtotal sums price times quantity over every line.
func subtotal(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].Subtotal())
	}
	return total
}

// CartService handles business logic related to shopping carts.
type CartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
}

// NewCartService creates a new CartService.
func NewCartService(carts repositories.CartRepository, products repositories.ProductRepository) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
	}
}

// Items returns the user's cart lines and their total.
func (s *CartService) Items(ctx context.Context, userID uint) (*Cart, error) {
	items, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Cart{Items: items, Total: subtotal(items)}, nil
}

// Count returns the number of distinct lines in the user's cart.
func (s *CartService) Count(ctx context.Context, userID uint) (int64, error) {
	return s.carts.CountLines(ctx, userID)
}

// Add puts qty units of a product into the cart, merging with an existing line.
// It returns the new line count.
func (s *CartService) Add(ctx context.Context, userID, productID uint, qty int) (int64, error) {
	if qty < 1 {
		return 0, invalid("Quantity must be at least 1")
	}
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return 0, err
	}

	inCart := 0
	line, err := s.carts.GetLine(ctx, userID, productID)
	switch {
	case err == nil:
		inCart = line.Quantity
	case !errors.Is(err, repositories.ErrNotFound):
		return 0, err
	}
	if !product.HasSufficientStock(inCart + qty) {
		return 0, &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   product.Quantity,
			Requested:   inCart + qty,
		}
	}

	if err := s.carts.AddQuantity(ctx, userID, productID, qty); err != nil {
		return 0, err
	}
	return s.carts.CountLines(ctx, userID)
}

// ownedLine loads a cart line and checks that it belongs to userID.
func (s *CartService) ownedLine(ctx context.Context, userID, lineID uint) (*models.CartItem, error) {
	line, err := s.carts.GetByID(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line.UserID != userID {
		return nil, ErrNotOwner
	}
	return line, nil
}

// Update sets a line's quantity. A quantity of zero or less removes the line.
func (s *CartService) Update(ctx context.Context, userID, lineID uint, qty int) error {
	line, err := s.ownedLine(ctx, userID, lineID)
	if err != nil {
		return err
	}
	if qty <= 0 {
		return s.carts.Delete(ctx, line.ID)
	}
	if !line.Product.HasSufficientStock(qty) {
		return &InsufficientStockError{
			ProductID:   line.ProductID,
			ProductName: line.Product.Name,
			Available:   line.Product.Quantity,
			Requested:   qty,
		}
	}
	return s.carts.UpdateQuantity(ctx, line.ID, qty)
}

// Remove deletes one line. Removing a line that no longer exists is not an error.
func (s *CartService) Remove(ctx context.Context, userID, lineID uint) error {
	line, err := s.ownedLine(ctx, userID, lineID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.carts.Delete(ctx, line.ID)
}

// Clear empties the user's cart.
func (s *CartService) Clear(ctx context.Context, userID uint) error {
	return s.carts.DeleteByUser(ctx, userID)
}
