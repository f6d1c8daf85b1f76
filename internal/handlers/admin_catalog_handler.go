package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AdminCatalogHandler handles product and category administration.
type AdminCatalogHandler struct {
	catalog *services.CatalogService
}

// NewAdminCatalogHandler creates a new AdminCatalogHandler.
func NewAdminCatalogHandler(catalog *services.CatalogService) *AdminCatalogHandler {
	return &AdminCatalogHandler{catalog: catalog}
}

// Routes returns the admin product and category routes.
func (h *AdminCatalogHandler) Routes() []middleware.Route {
	return []middleware.Route{
		{Method: fiber.MethodGet, Path: "/admin-products", Requires: middleware.Admin, Handler: h.HandleGetProducts},
		{Method: fiber.MethodPost, Path: "/admin-products", Requires: middleware.Admin, Handler: h.HandlePostProduct},
		{Method: fiber.MethodGet, Path: "/admin-categories", Requires: middleware.Admin, Handler: h.HandleGetCategories},
		{Method: fiber.MethodPost, Path: "/admin-categories", Requires: middleware.Admin, Handler: h.HandlePostCategory},
	}
}

// HandleGetProducts dispatches action=list|get.
func (h *AdminCatalogHandler) HandleGetProducts(c *fiber.Ctx) error {
	switch param(c, "action") {
	case "list":
		products, err := h.catalog.ListProducts(c.UserContext(), services.ProductQuery{})
		if err != nil {
			return adminFailure(c, err, "listing products")
		}
		return c.JSON(productDTOs(products))
	case "get":
		id, ok, err := requireID(c, "Product ID required", "Invalid product ID")
		if !ok {
			return err
		}
		product, err := h.catalog.GetProduct(c.UserContext(), id)
		if err != nil {
			return adminFailure(c, err, "loading product")
		}
		return c.JSON(newProductDTO(product))
	}
	return errorJSON(c, fiber.StatusBadRequest, invalidAction)
}

// HandlePostProduct deletes with action=delete and saves otherwise. A save may
// carry an "image" file.
func (h *AdminCatalogHandler) HandlePostProduct(c *fiber.Ctx) error {
	if param(c, "action") == "delete" {
		id, ok, err := requireID(c, "Product ID required", "Invalid product ID")
		if !ok {
			return err
		}
		if err := h.catalog.DeleteProduct(c.UserContext(), id); err != nil {
			return adminFailure(c, err, "deleting product")
		}
		return c.JSON(fiber.Map{"success": true, "message": "Product deleted successfully"})
	}

	in := services.ProductInput{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Price:       c.FormValue("price"),
		Quantity:    c.FormValue("Quantity"),
		CategoryID:  c.FormValue("categoryId"),
		ImageURL:    c.FormValue("imageUrl"),
	}
	if raw := param(c, "id"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "Invalid product ID")
		}
		in.ID = id
	}

	var upload *services.Upload
	if fh, err := c.FormFile("image"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return adminFailure(c, err, "opening uploaded image")
		}
		defer f.Close()
		upload = &services.Upload{Filename: fh.Filename, ContentType: fh.Header.Get(fiber.HeaderContentType), Body: f}
	}

	product, err := h.catalog.SaveProduct(c.UserContext(), in, upload)
	if err != nil {
		return adminFailure(c, err, "saving product")
	}
	return c.JSON(fiber.Map{"success": true, "message": "Product saved successfully", "id": product.ID})
}

// HandleGetCategories dispatches action=list|get. The list carries product counts.
func (h *AdminCatalogHandler) HandleGetCategories(c *fiber.Ctx) error {
	switch param(c, "action") {
	case "list":
		categories, err := h.catalog.ListCategories(c.UserContext())
		if err != nil {
			return adminFailure(c, err, "listing categories")
		}
		counts, err := h.catalog.CategoryProductCounts(c.UserContext())
		if err != nil {
			return adminFailure(c, err, "counting category products")
		}
		out := make([]categoryDTO, 0, len(categories))
		for i := range categories {
			dto := newCategoryDTO(&categories[i])
			count := counts[categories[i].ID]
			dto.ProductCount = &count
			out = append(out, dto)
		}
		return c.JSON(out)
	case "get":
		id, ok, err := requireID(c, "Category ID required", "Invalid category ID")
		if !ok {
			return err
		}
		category, err := h.catalog.GetCategory(c.UserContext(), id)
		if err != nil {
			return adminFailure(c, err, "loading category")
		}
		return c.JSON(newCategoryDTO(category))
	}
	return errorJSON(c, fiber.StatusBadRequest, invalidAction)
}

// HandlePostCategory deletes with action=delete and saves otherwise.
func (h *AdminCatalogHandler) HandlePostCategory(c *fiber.Ctx) error {
	if param(c, "action") == "delete" {
		id, ok, err := requireID(c, "Category ID required", "Invalid category ID")
		if !ok {
			return err
		}
		if err := h.catalog.DeleteCategory(c.UserContext(), id); err != nil {
			return adminFailure(c, err, "deleting category")
		}
		return c.JSON(fiber.Map{"success": true, "message": "Category deleted successfully"})
	}

	in := services.CategoryInput{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		ImageURL:    c.FormValue("imageUrl"),
	}
	if raw := param(c, "id"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "Invalid category ID")
		}
		in.ID = id
	}
	category, err := h.catalog.SaveCategory(c.UserContext(), in)
	if err != nil {
		return adminFailure(c, err, "saving category")
	}
	return c.JSON(fiber.Map{"success": true, "message": "Category saved successfully", "id": category.ID})
}
