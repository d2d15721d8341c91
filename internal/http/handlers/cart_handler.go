package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type CartHandler struct {
	Carts   *services.CartService
	Catalog *services.CatalogService
}

type cartView struct {
	Kind       domain.CartKind   `json:"kind"`
	Items      []domain.LineItem `json:"items"`
	TotalItems int               `json:"totalItems"`
	TotalPrice string            `json:"totalPrice"`
}

func viewOf(cart *services.Cart) cartView {
	return cartView{
		Kind:       cart.Kind(),
		Items:      cart.Items(),
		TotalItems: cart.TotalItemCount(),
		TotalPrice: cart.TotalPrice().StringFixed(2),
	}
}

// open resolves :kind for the caller's session.
func (h *CartHandler) open(c *fiber.Ctx) (*services.Cart, error) {
	kind, ok := validate.Kind(c.Params("kind"))
	if !ok {
		return nil, services.ErrUnknownCartKind
	}
	return h.Carts.Open(c.UserContext(), kind, ensureSID(c))
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	cart, err := h.open(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(viewOf(cart))
}

type candidateBody struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	PhotoURL  string          `json:"photoUrl"`
}

func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	cart, err := h.open(c)
	if err != nil {
		return writeError(c, err)
	}
	var body candidateBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	name := strings.TrimSpace(body.Name)
	if body.ID <= 0 || name == "" || body.UnitPrice.IsNegative() {
		applog.Security(c, "cart.add.invalid", map[string]any{"id": body.ID})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id, name and a non-negative unitPrice are required"})
	}
	if err := cart.AddItem(c.UserContext(), domain.Candidate{ID: body.ID, Name: name, UnitPrice: body.UnitPrice, PhotoURL: body.PhotoURL}); err != nil {
		return err
	}
	applog.Audit(c, "cart.add", map[string]any{"kind": cart.Kind(), "id": body.ID})
	return c.JSON(viewOf(cart))
}

// AddProduct adds a product the session has browsed, with the stock and
// price guards applied.
func (h *CartHandler) AddProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}
	cart, err := h.open(c)
	if err != nil {
		return writeError(c, err)
	}
	p, found := h.Catalog.Browser(ensureSID(c)).Product(id)
	if !found {
		return writeError(c, services.ErrProductNotListed)
	}
	if err := h.Carts.AddProduct(c.UserContext(), cart, p); err != nil {
		return writeError(c, err)
	}
	applog.Audit(c, "cart.add", map[string]any{"kind": cart.Kind(), "id": id, "source": "catalog"})
	return c.JSON(viewOf(cart))
}

func (h *CartHandler) SetQuantity(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	qty := validate.ClampQuantity(body.Quantity)
	cart, err := h.open(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := cart.SetQuantity(c.UserContext(), id, qty); err != nil {
		return err
	}
	applog.Audit(c, "cart.set_quantity", map[string]any{"kind": cart.Kind(), "id": id, "quantity": qty})
	return c.JSON(viewOf(cart))
}

func (h *CartHandler) Remove(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}
	cart, err := h.open(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := cart.RemoveItem(c.UserContext(), id); err != nil {
		return err
	}
	applog.Audit(c, "cart.remove", map[string]any{"kind": cart.Kind(), "id": id})
	return c.JSON(viewOf(cart))
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	cart, err := h.open(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := cart.Clear(c.UserContext()); err != nil {
		return err
	}
	applog.Audit(c, "cart.clear", map[string]any{"kind": cart.Kind()})
	return c.JSON(viewOf(cart))
}

// Page renders the cart as HTML.
func (h *CartHandler) Page(c *fiber.Ctx) error {
	kind, ok := validate.Kind(c.Params("kind"))
	if !ok {
		return notFound(c, "Página no encontrada")
	}
	cart, err := h.Carts.Open(c.UserContext(), kind, ensureSID(c))
	if err != nil {
		return err
	}
	return render(c, "cart", fiber.Map{
		"Kind":  string(kind),
		"Items": cart.Items(),
		"Count": cart.TotalItemCount(),
		"Total": cart.TotalPrice().StringFixed(2),
	})
}
