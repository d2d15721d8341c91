package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

// CatalogHandler drives the session's catalog browser.
type CatalogHandler struct {
	Catalog *services.CatalogService
}

// State returns the browser listing, loading page 1 on first visit.
func (h *CatalogHandler) State(c *fiber.Ctx) error {
	b := h.Catalog.Browser(ensureSID(c))
	if st := b.State(); st.Page == 0 && !st.Loading {
		if err := b.Load(c.UserContext(), st.Term, 1); err != nil && !errors.Is(err, services.ErrSuperseded) {
			return writeError(c, err)
		}
	}
	return c.JSON(b.State())
}

// Search schedules a debounced search; the result shows up in State.
func (h *CatalogHandler) Search(c *fiber.Ctx) error {
	var body struct {
		Term string `json:"term"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	term, ok := validate.Q(body.Term)
	if !ok {
		applog.Security(c, "input.invalid.q", map[string]any{"len": len(body.Term)})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid search term"})
	}
	h.Catalog.Browser(ensureSID(c)).SetSearchTerm(term)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"term":       term,
		"debounceMs": h.Catalog.Debounce.Milliseconds(),
	})
}

func (h *CatalogHandler) More(c *fiber.Ctx) error {
	b := h.Catalog.Browser(ensureSID(c))
	if err := b.LoadMore(c.UserContext()); err != nil {
		return writeError(c, err)
	}
	return c.JSON(b.State())
}
