package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

const relatedLimit = 4

// CatalogHandler serves the public product and category listings.
type CatalogHandler struct {
	catalog *services.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Routes returns the catalog routes.
func (h *CatalogHandler) Routes() []middleware.Route {
	return []middleware.Route{
		{Method: fiber.MethodGet, Path: "/products", Requires: middleware.Public, Handler: h.HandleListProducts},
		{Method: fiber.MethodGet, Path: "/product-details", Requires: middleware.Public, Handler: h.HandleProductDetails},
		{Method: fiber.MethodGet, Path: "/categories", Requires: middleware.Public, Handler: h.HandleListCategories},
	}
}

// HandleListProducts lists products filtered by category or search term, then sorted.
func (h *CatalogHandler) HandleListProducts(c *fiber.Ctx) error {
	q := services.ProductQuery{Search: param(c, "search"), Sort: param(c, "sort")}
	if raw := param(c, "category"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "Invalid category ID")
		}
		q.CategoryID = &id
	}
	products, err := h.catalog.ListProducts(c.UserContext(), q)
	if err != nil {
		return adminFailure(c, err, "listing products")
	}
	return c.JSON(productDTOs(products))
}

// HandleProductDetails returns one product, with related products when related=true.
func (h *CatalogHandler) HandleProductDetails(c *fiber.Ctx) error {
	raw := param(c, "id")
	if raw == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Product ID is required")
	}
	id, err := parseID(raw)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid product ID")
	}
	product, err := h.catalog.GetProduct(c.UserContext(), id)
	if err != nil {
		return adminFailure(c, err, "loading product")
	}
	if param(c, "related") != "true" {
		return c.JSON(newProductDTO(product))
	}
	related, err := h.catalog.RelatedProducts(c.UserContext(), product, relatedLimit)
	if err != nil {
		return adminFailure(c, err, "loading related products")
	}
	return c.JSON(fiber.Map{
		"product":         newProductDTO(product),
		"relatedProducts": productDTOs(related),
	})
}

// HandleListCategories lists every category.
func (h *CatalogHandler) HandleListCategories(c *fiber.Ctx) error {
	categories, err := h.catalog.ListCategories(c.UserContext())
	if err != nil {
		return adminFailure(c, err, "listing categories")
	}
	out := make([]categoryDTO, 0, len(categories))
	for i := range categories {
		out = append(out, newCategoryDTO(&categories[i]))
	}
	return c.JSON(out)
}
