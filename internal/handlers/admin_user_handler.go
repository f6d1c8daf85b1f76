package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AdminUserHandler handles user administration.
type AdminUserHandler struct {
	admin *services.AdminService
}

// NewAdminUserHandler creates a new AdminUserHandler.
func NewAdminUserHandler(admin *services.AdminService) *AdminUserHandler {
	return &AdminUserHandler{admin: admin}
}

// Routes returns the admin user routes.
func (h *AdminUserHandler) Routes() []middleware.Route {
	return []middleware.Route{
		{Method: fiber.MethodGet, Path: "/admin-users", Requires: middleware.Admin, Handler: h.HandleGet},
		{Method: fiber.MethodPost, Path: "/admin-users", Requires: middleware.Admin, Handler: h.HandlePost},
	}
}

// HandleGet dispatches action=list|get.
func (h *AdminUserHandler) HandleGet(c *fiber.Ctx) error {
	switch param(c, "action") {
	case "list":
		users, err := h.admin.ListUsers(c.UserContext())
		if err != nil {
			return adminFailure(c, err, "listing users")
		}
		return c.JSON(users)
	case "get":
		id, ok, err := requireID(c, "User ID required", "Invalid user ID")
		if !ok {
			return err
		}
		user, err := h.admin.GetUser(c.UserContext(), id)
		if err != nil {
			return adminFailure(c, err, "loading user")
		}
		return c.JSON(user)
	}
	return errorJSON(c, fiber.StatusBadRequest, invalidAction)
}

// HandlePost dispatches action=update-role.
func (h *AdminUserHandler) HandlePost(c *fiber.Ctx) error {
	if param(c, "action") != "update-role" {
		return errorJSON(c, fiber.StatusBadRequest, invalidAction)
	}
	rawID, role := param(c, "id"), param(c, "role")
	if rawID == "" || role == "" {
		return errorJSON(c, fiber.StatusBadRequest, "User ID and role are required")
	}
	id, err := parseID(rawID)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid user ID")
	}
	if _, err := h.admin.UpdateRole(c.UserContext(), id, role); err != nil {
		return adminFailure(c, err, "updating user role")
	}
	return c.JSON(fiber.Map{"success": true, "message": "User role updated successfully"})
}
