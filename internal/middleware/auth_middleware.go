package middleware

import (
	"context"
	"log"
	"strings"

	"storefront/internal/models"
	"storefront/internal/services"
	"storefront/internal/session"

	"github.com/gofiber/fiber/v2"
)

const principalKey = "principal"

// Capability is what a route requires of its caller.
type Capability int

const (
	// Public routes are open to everyone.
	Public Capability = iota
	// Customer routes need a logged-in user of any role.
	Customer
	// Admin routes need a logged-in ADMIN.
	Admin
)

// Default denial messages.
const (
	NotLoggedInMessage   = "User not logged in"
	AdminRequiredMessage = "Admin access required"
)

// Route is one endpoint together with the capability it requires.
type Route struct {
	Method   string
	Path     string
	Requires Capability
	// DeniedMessage overrides the default denial message.
	DeniedMessage string
	Handler       fiber.Handler
}

// TokenAuthenticator turns a bearer token into a principal.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*services.Principal, error)
}

// Authorizer resolves the caller's identity and enforces route capabilities.
type Authorizer struct {
	tokens TokenAuthenticator
}

// NewAuthorizer creates a new Authorizer. tokens may be nil to disable bearer tokens.
func NewAuthorizer(tokens TokenAuthenticator) *Authorizer {
	return &Authorizer{tokens: tokens}
}

// Identify attaches the caller's principal to the request. The session
// identity wins; otherwise an "Authorization: Bearer <token>" header is tried.
// Requests without an identity pass through anonymously.
func (a *Authorizer) Identify() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if p := sessionPrincipal(session.FromCtx(c)); p != nil {
			c.Locals(principalKey, p)
			return c.Next()
		}
		if a.tokens == nil {
			return c.Next()
		}
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Next()
		}
		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Next()
		}
		p, err := a.tokens.Authenticate(c.UserContext(), parts[1])
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			return c.Next()
		}
		c.Locals(principalKey, p)
		return c.Next()
	}
}

func sessionPrincipal(sess *session.Session) *services.Principal {
	if !sess.Authenticated() {
		return nil
	}
	data := sess.Data()
	role, ok := models.ParseRole(data.UserRole)
	if !ok {
		role = models.RoleCustomer
	}
	return &services.Principal{
		UserID:   data.UserID,
		Username: data.Username,
		Email:    data.UserEmail,
		Role:     role,
	}
}

// PrincipalFrom returns the caller's principal, or nil for anonymous requests.
func PrincipalFrom(c *fiber.Ctx) *services.Principal {
	p, _ := c.Locals(principalKey).(*services.Principal)
	return p
}

// Require rejects callers that lack capability with 401 {"success":false,"error":message}.
// An empty message selects the default for the capability.
func (a *Authorizer) Require(capability Capability, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := PrincipalFrom(c)
		switch capability {
		case Customer:
			if p == nil {
				return deny(c, message, NotLoggedInMessage)
			}
		case Admin:
			if !p.IsAdmin() {
				return deny(c, message, AdminRequiredMessage)
			}
		}
		return c.Next()
	}
}

func deny(c *fiber.Ctx, message, fallback string) error {
	if message == "" {
		message = fallback
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// Register mounts every route behind its capability check.
func (a *Authorizer) Register(router fiber.Router, routes []Route) {
	for _, r := range routes {
		router.Add(r.Method, r.Path, a.Require(r.Requires, r.DeniedMessage), r.Handler)
	}
}

// AdminPageFilter redirects requests for pages under prefix to loginPath
// unless the caller is an admin.
func AdminPageFilter(prefix, loginPath string) fiber.Handler {
	prefix = strings.TrimRight(prefix, "/") + "/"
	return func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), prefix) && !PrincipalFrom(c).IsAdmin() {
			return c.Redirect(loginPath, fiber.StatusFound)
		}
		return c.Next()
	}
}
