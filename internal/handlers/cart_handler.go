package handlers

import (
	"errors"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the shopping cart.
type CartHandler struct {
	carts *services.CartService
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(carts *services.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// Routes returns the cart routes.
func (h *CartHandler) Routes() []middleware.Route {
	return []middleware.Route{
		{Method: fiber.MethodGet, Path: "/cart", Requires: middleware.Customer, Handler: h.HandleGetCart},
		{Method: fiber.MethodPost, Path: "/cart", Requires: middleware.Customer, Handler: h.HandleCartAction},
	}
}

// HandleGetCart returns the cart lines (format=json) or the line count (action=count).
// Browsers without format=json are sent to the cart page.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	userID := middleware.PrincipalFrom(c).UserID
	if param(c, "action") == "count" {
		count, err := h.carts.Count(c.UserContext(), userID)
		if err != nil {
			return shopperFailure(c, err, "counting cart items")
		}
		return c.JSON(fiber.Map{"success": true, "count": count})
	}
	if param(c, "format") != "json" {
		return c.Redirect("/cart.html", fiber.StatusFound)
	}

	cart, err := h.carts.Items(c.UserContext(), userID)
	if err != nil {
		return shopperFailure(c, err, "getting cart items")
	}
	items := make([]cartLineDTO, 0, len(cart.Items))
	for i := range cart.Items {
		line := &cart.Items[i]
		items = append(items, cartLineDTO{
			ID:           line.ID,
			ProductID:    line.ProductID,
			ProductName:  line.Product.Name,
			Price:        line.Product.Price,
			ProductImage: line.Product.ImageURL,
			Quantity:     line.Quantity,
			Subtotal:     line.Subtotal(),
		})
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"items":      items,
		"totalItems": len(items),
		"cartTotal":  cart.Total,
	})
}

// HandleCartAction dispatches action=add|update|remove|clear.
func (h *CartHandler) HandleCartAction(c *fiber.Ctx) error {
	userID := middleware.PrincipalFrom(c).UserID
	switch param(c, "action") {
	case "":
		return failJSON(c, fiber.StatusBadRequest, "Action parameter required")
	case "add":
		return h.add(c, userID)
	case "update":
		return h.update(c, userID)
	case "remove":
		return h.remove(c, userID)
	case "clear":
		if err := h.carts.Clear(c.UserContext(), userID); err != nil {
			return shopperFailure(c, err, "clearing cart")
		}
		return c.JSON(fiber.Map{"success": true, "message": "Cart cleared successfully"})
	}
	return failJSON(c, fiber.StatusBadRequest, invalidAction)
}

func (h *CartHandler) add(c *fiber.Ctx, userID uint) error {
	rawProduct, rawQty := param(c, "productId"), param(c, "quantity")
	if rawProduct == "" {
		return failJSON(c, fiber.StatusBadRequest, "Product ID is required")
	}
	if rawQty == "" {
		return failJSON(c, fiber.StatusBadRequest, "Quantity is required")
	}
	productID, err := parseID(rawProduct)
	qty, qerr := strconv.Atoi(rawQty)
	if err != nil || qerr != nil {
		return failJSON(c, fiber.StatusBadRequest, "Invalid product ID or quantity format")
	}

	count, err := h.carts.Add(c.UserContext(), userID, productID, qty)
	if err != nil {
		return cartFailure(c, err, "adding to cart")
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "Product added to cart successfully",
		"cartCount": count,
	})
}

func (h *CartHandler) update(c *fiber.Ctx, userID uint) error {
	rawLine, rawQty := param(c, "cartItemId"), param(c, "quantity")
	if rawLine == "" {
		return failJSON(c, fiber.StatusBadRequest, "Cart item ID is required")
	}
	if rawQty == "" {
		return failJSON(c, fiber.StatusBadRequest, "Quantity is required")
	}
	lineID, err := parseID(rawLine)
	qty, qerr := strconv.Atoi(rawQty)
	if err != nil || qerr != nil {
		return failJSON(c, fiber.StatusBadRequest, "Invalid cart item ID or quantity format")
	}
	if err := h.carts.Update(c.UserContext(), userID, lineID, qty); err != nil {
		return cartFailure(c, err, "updating cart item")
	}
	return c.JSON(fiber.Map{"success": true, "message": "Cart updated successfully"})
}

func (h *CartHandler) remove(c *fiber.Ctx, userID uint) error {
	rawLine := param(c, "cartItemId")
	if rawLine == "" {
		return failJSON(c, fiber.StatusBadRequest, "Cart item ID is required")
	}
	lineID, err := parseID(rawLine)
	if err != nil {
		return failJSON(c, fiber.StatusBadRequest, "Invalid cart item ID format")
	}
	if err := h.carts.Remove(c.UserContext(), userID, lineID); err != nil {
		return cartFailure(c, err, "removing from cart")
	}
	return c.JSON(fiber.Map{"success": true, "message": "Item removed from cart"})
}

// cartFailure reports stock shortfalls the way the cart page displays them.
func cartFailure(c *fiber.Ctx, err error, op string) error {
	var stock *services.InsufficientStockError
	if errors.As(err, &stock) {
		return failJSON(c, fiber.StatusBadRequest, "Insufficient stock. Available: "+strconv.Itoa(stock.Available))
	}
	return shopperFailure(c, err, op)
}
