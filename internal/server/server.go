// Package server assembles the storefront fiber app from its dependencies.
package server

import (
	"strings"
	"time"

	"storefront/internal/config"
	"storefront/internal/handlers"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/internal/session"
	"storefront/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const adminLoginPage = "/admin-login.html"

// Deps are the long-lived resources the app is built on.
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Disk   storage.Disk
	// Sessions defaults to an in-memory store.
	Sessions session.Store
	// Redis, when set, caches product reads.
	Redis *redis.Client
	// Publisher, when set, receives order events.
	Publisher services.EventPublisher
}

// routeSource is implemented by every handler.
type routeSource interface {
	Routes() []middleware.Route
}

// New builds the fiber app with every route mounted.
func New(deps Deps) *fiber.App {
	cfg := deps.Config

	repos := repositories.NewGORMRepositories(deps.DB)
	var cache services.ProductCache
	if deps.Redis != nil {
		cached := repositories.NewCachedProductRepository(repos.Products, deps.Redis)
		repos.Products = cached
		cache = cached
	}
	sessions := deps.Sessions
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}

	authService := services.NewAuthService(repos.Users, cfg.JWTSecret)
	catalogService := services.NewCatalogService(repos.Products, repos.Categories, deps.Disk, cache)
	cartService := services.NewCartService(repos.Carts, repos.Products)
	orderService := services.NewOrderService(repos, repositories.NewGORMUnitOfWork(deps.DB),
		services.Pricing{ShippingFee: cfg.ShippingFee, TaxRate: cfg.TaxRate}, deps.Publisher, cache)
	paymentService := services.NewPaymentService(cfg.PayHere, orderService)
	adminService := services.NewAdminService(repos.Users)
	reportService := services.NewReportService(repos)

	app := fiber.New(fiber.Config{
		AppName:   "storefront",
		BodyLimit: 10 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(metrics.Middleware())

	authz := middleware.NewAuthorizer(authService)
	app.Use(session.NewManager(sessions, session.Options{
		CookieName: cfg.SessionCookie,
		TTL:        cfg.SessionTimeout,
		Secure:     strings.HasPrefix(cfg.PublicBaseURL, "https://"),
	}).Middleware())
	app.Use(authz.Identify())
	app.Use(middleware.AdminPageFilter("/admin", adminLoginPage))

	for _, h := range []routeSource{
		handlers.NewAuthHandler(authService),
		handlers.NewCatalogHandler(catalogService),
		handlers.NewCartHandler(cartService),
		handlers.NewCheckoutHandler(orderService, paymentService, cfg.PublicBaseURL),
		handlers.NewOrderHandler(orderService),
		handlers.NewAdminCatalogHandler(catalogService),
		handlers.NewAdminUserHandler(adminService),
		handlers.NewReportHandler(reportService),
	} {
		authz.Register(app, h.Routes())
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	app.Get("/metrics", metrics.Handler())

	if local, ok := deps.Disk.(*storage.LocalDisk); ok {
		app.Static(cfg.Storage.URL, local.Root())
	}
	if cfg.WebRoot != "" {
		app.Static("/", cfg.WebRoot)
	}
	return app
}
