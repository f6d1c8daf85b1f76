package handlers

import (
	"errors"
	"time"

	"storefront/internal/middleware"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/internal/session"

	"github.com/gofiber/fiber/v2"
)

const (
	resetCookie = "reset_token"
	resetPath   = "/forgot-password"
)

// AuthHandler handles HTTP requests for authentication and the caller's profile.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Routes returns the authentication routes.
func (h *AuthHandler) Routes() []middleware.Route {
	return []middleware.Route{
		{Method: fiber.MethodPost, Path: "/login", Requires: middleware.Public, Handler: h.HandleLogin},
		{Method: fiber.MethodPost, Path: "/register", Requires: middleware.Public, Handler: h.HandleRegister},
		{Method: fiber.MethodGet, Path: "/logout", Requires: middleware.Public, Handler: h.HandleLogout},
		{Method: fiber.MethodPost, Path: "/logout", Requires: middleware.Public, Handler: h.HandleLogout},
		{Method: fiber.MethodPost, Path: resetPath, Requires: middleware.Public, Handler: h.HandleForgotPassword},
		{Method: fiber.MethodGet, Path: "/user-profile", Requires: middleware.Customer, DeniedMessage: "Not logged in", Handler: h.HandleProfile},
		{Method: fiber.MethodGet, Path: "/admin-auth", Requires: middleware.Public, Handler: h.HandleAdminCheck},
	}
}

// HandleLogin starts a session for valid credentials and returns a bearer token
// in X-Auth-Token for API clients.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	username := param(c, "username")
	password := c.FormValue("password")
	if username == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Username is required")
	}
	if param(c, "password") == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Password is required")
	}

	user, err := h.authService.Login(c.UserContext(), username, password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).SendString("Invalid username or password")
		}
		return textFailure(c, err, "during login")
	}

	session.FromCtx(c).Login(session.Data{
		UserID:    user.ID,
		Username:  user.Username,
		UserRole:  string(user.Role),
		UserEmail: user.Email,
	})
	if token, err := h.authService.IssueToken(user); err == nil {
		c.Set("X-Auth-Token", token)
	}
	return c.SendString("Login successful")
}

// HandleRegister creates a customer account.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	_, err := h.authService.Register(c.UserContext(), services.RegisterInput{
		Username:        c.FormValue("username"),
		Email:           c.FormValue("email"),
		Password:        c.FormValue("password"),
		ConfirmPassword: c.FormValue("confirmPassword"),
		FullName:        c.FormValue("fullName"),
		Phone:           c.FormValue("phone"),
		Address:         c.FormValue("address"),
	})
	if err != nil {
		return textFailure(c, err, "registering user")
	}
	return c.SendString("Registration successful")
}

// HandleLogout ends the session.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	session.FromCtx(c).Destroy()
	return c.SendString("Logged out successfully")
}

// HandleForgotPassword runs the two-step recovery flow. action=recover checks the
// email and hands out a short-lived reset cookie; action=update sets the new password.
func (h *AuthHandler) HandleForgotPassword(c *fiber.Ctx) error {
	switch c.FormValue("action") {
	case "recover":
		return h.recoverPassword(c)
	case "update":
		return h.updatePassword(c)
	}
	return c.Status(fiber.StatusBadRequest).SendString(invalidAction)
}

func (h *AuthHandler) recoverPassword(c *fiber.Ctx) error {
	token, err := h.authService.RecoverPassword(c.UserContext(), c.FormValue("email"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).SendString("No account found with this email")
		}
		return textFailure(c, err, "recovering password")
	}
	c.Cookie(&fiber.Cookie{
		Name:     resetCookie,
		Value:    token,
		Path:     resetPath,
		Expires:  time.Now().Add(15 * time.Minute),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return c.SendString("Email found")
}

func (h *AuthHandler) updatePassword(c *fiber.Ctx) error {
	token := c.Cookies(resetCookie)
	if token == "" {
		token = c.FormValue("token")
	}
	err := h.authService.ResetPassword(c.UserContext(), token, services.ResetInput{
		Email:           c.FormValue("email"),
		NewPassword:     c.FormValue("newPassword"),
		ConfirmPassword: c.FormValue("confirmPassword"),
	})
	switch {
	case err == nil:
	case errors.Is(err, services.ErrInvalidToken):
		return c.Status(fiber.StatusUnauthorized).SendString("Password reset session expired, please start again")
	case errors.Is(err, repositories.ErrNotFound):
		return c.Status(fiber.StatusNotFound).SendString("User not found")
	default:
		return textFailure(c, err, "updating password")
	}
	c.Cookie(&fiber.Cookie{Name: resetCookie, Path: resetPath, Expires: time.Unix(0, 0), HTTPOnly: true})
	return c.SendString("Password updated successfully")
}

// HandleProfile returns the logged-in user without the password hash.
func (h *AuthHandler) HandleProfile(c *fiber.Ctx) error {
	user, err := h.authService.Profile(c.UserContext(), middleware.PrincipalFrom(c).UserID)
	if err != nil {
		return adminFailure(c, err, "loading profile")
	}
	return c.JSON(user)
}

// HandleAdminCheck reports whether the caller is an admin.
func (h *AuthHandler) HandleAdminCheck(c *fiber.Ctx) error {
	if c.Query("action") != "check" {
		return errorJSON(c, fiber.StatusBadRequest, invalidAction)
	}
	p := middleware.PrincipalFrom(c)
	if !p.IsAdmin() {
		return c.JSON(fiber.Map{"isAdmin": false})
	}
	return c.JSON(fiber.Map{"isAdmin": true, "username": p.Username})
}
