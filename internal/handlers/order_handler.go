package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles the admin order endpoints.
type OrderHandler struct {
	service *services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service: service,
	}
}

// Routes returns the admin order routes.
func (h *OrderHandler) Routes() []middleware.Route {
	return []middleware.Route{
		{Method: fiber.MethodGet, Path: "/admin-orders", Requires: middleware.Admin, Handler: h.HandleGet},
		{Method: fiber.MethodPost, Path: "/admin-orders", Requires: middleware.Admin, Handler: h.HandlePost},
	}
}

// HandleGet dispatches action=list|get.
func (h *OrderHandler) HandleGet(c *fiber.Ctx) error {
	switch param(c, "action") {
	case "list":
		return h.list(c)
	case "get":
		return h.get(c)
	}
	return errorJSON(c, fiber.StatusBadRequest, invalidAction)
}

// HandlePost dispatches action=update-status.
func (h *OrderHandler) HandlePost(c *fiber.Ctx) error {
	if param(c, "action") != "update-status" {
		return errorJSON(c, fiber.StatusBadRequest, invalidAction)
	}
	return h.updateStatus(c)
}

// list returns every order, newest first, optionally for one status.
func (h *OrderHandler) list(c *fiber.Ctx) error {
	var status *models.OrderStatus
	if raw := param(c, "status"); raw != "" {
		parsed, err := models.ParseOrderStatus(raw)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "Invalid status value")
		}
		status = &parsed
	}
	orders, err := h.service.ListOrders(c.UserContext(), status)
	if err != nil {
		return adminFailure(c, err, "getting all orders")
	}
	out := make([]adminOrderDTO, 0, len(orders))
	for i := range orders {
		out = append(out, newAdminOrderDTO(&orders[i], false))
	}
	return c.JSON(out)
}

func (h *OrderHandler) get(c *fiber.Ctx) error {
	id, ok, err := requireID(c, "Order ID required", "Invalid order ID")
	if !ok {
		return err
	}
	order, err := h.service.GetOrder(c.UserContext(), id)
	if err != nil {
		return adminFailure(c, err, "getting order by ID")
	}
	return c.JSON(newAdminOrderDTO(order, true))
}

func (h *OrderHandler) updateStatus(c *fiber.Ctx) error {
	rawID, rawStatus := param(c, "id"), param(c, "status")
	if rawID == "" || rawStatus == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Order ID and status are required")
	}
	id, err := parseID(rawID)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid order ID")
	}
	status, err := models.ParseOrderStatus(rawStatus)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid status value")
	}
	if _, err := h.service.ChangeStatus(c.UserContext(), id, status); err != nil {
		return adminFailure(c, err, "updating order status")
	}
	return c.JSON(fiber.Map{"success": true, "message": "Order status updated successfully"})
}
