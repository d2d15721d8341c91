package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

// Page is a stateless catalog page fetch.
func (h *ProductHandler) Page(c *fiber.Ctx) error {
	term, ok := validate.Q(c.Query("search"))
	if !ok {
		applog.Security(c, "input.invalid.q", nil)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid search term"})
	}
	page := validate.Page(c.Query("page"))
	items, meta, err := h.Catalog.Page(c.UserContext(), term, page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"items":    items,
		"page":     meta.Page,
		"lastPage": meta.LastPage,
		"hasMore":  meta.HasMore,
	})
}

// Detail returns a product the session has already browsed.
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}
	p, found := h.Catalog.Browser(ensureSID(c)).Product(id)
	if !found {
		return writeError(c, services.ErrProductNotListed)
	}
	return c.JSON(h.Catalog.Inv.Decorate([]domain.CatalogProduct{p})[0])
}
