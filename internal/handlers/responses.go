package handlers

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

const invalidAction = "Invalid action"

// classify maps a service error to a status code and a client-facing message.
// Unexpected errors are logged and hidden behind a generic message.
func classify(err error, op string) (int, string) {
	var (
		verr       *services.ValidationError
		conflict   *services.ConflictError
		stock      *services.InsufficientStockError
		notFound   *repositories.NotFoundError
		transition *models.TransitionError
	)
	switch {
	case errors.As(err, &verr):
		return fiber.StatusBadRequest, verr.Message
	case errors.As(err, &conflict):
		return fiber.StatusBadRequest, conflict.Message
	case errors.As(err, &stock):
		return fiber.StatusBadRequest, stock.Error()
	case errors.Is(err, services.ErrEmptyCart):
		return fiber.StatusBadRequest, "Cart is empty"
	case errors.As(err, &notFound):
		return fiber.StatusNotFound, notFoundMessage(notFound.Entity)
	case errors.Is(err, services.ErrNotOwner):
		return fiber.StatusForbidden, "Access denied"
	case errors.As(err, &transition):
		return fiber.StatusConflict, fmt.Sprintf("Cannot change order status from %s to %s", transition.From, transition.To)
	case errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, "Invalid username or password"
	case errors.Is(err, services.ErrInvalidToken):
		return fiber.StatusUnauthorized, "Invalid or expired token"
	}
	log.Printf("Error %s: %v", op, err)
	return fiber.StatusInternalServerError, "Internal server error"
}

func notFoundMessage(entity string) string {
	if entity == "" {
		return "Not found"
	}
	return strings.ToUpper(entity[:1]) + entity[1:] + " not found"
}

// errorJSON writes {"error": message}, the shape of the admin endpoints.
func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// failJSON writes {"success": false, "error": message}, the shape of the shopper endpoints.
func failJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "error": message})
}

func adminFailure(c *fiber.Ctx, err error, op string) error {
	status, message := classify(err, op)
	return errorJSON(c, status, message)
}

func shopperFailure(c *fiber.Ctx, err error, op string) error {
	status, message := classify(err, op)
	return failJSON(c, status, message)
}

func textFailure(c *fiber.Ctx, err error, op string) error {
	status, message := classify(err, op)
	return c.Status(status).SendString(message)
}

// param returns a trimmed query, form or multipart value.
func param(c *fiber.Ctx, key string) string {
	return strings.TrimSpace(c.FormValue(key))
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

// requireID parses the id parameter. When ok is false the error response has
// already been written and err is what the handler should return.
func requireID(c *fiber.Ctx, missing, malformed string) (id uint, ok bool, err error) {
	raw := param(c, "id")
	if raw == "" {
		return 0, false, errorJSON(c, fiber.StatusBadRequest, missing)
	}
	if id, err = parseID(raw); err != nil {
		return 0, false, errorJSON(c, fiber.StatusBadRequest, malformed)
	}
	return id, true, nil
}
