package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

// CheckoutHandler submits a cart as a reservation.
type CheckoutHandler struct {
	Carts    *services.CartService
	Checkout *services.CheckoutService
}

func (h *CheckoutHandler) submitter(c *fiber.Ctx) (*services.Submitter, error) {
	kind, ok := validate.Kind(c.Params("kind"))
	if !ok {
		return nil, services.ErrUnknownCartKind
	}
	cart, err := h.Carts.Open(c.UserContext(), kind, ensureSID(c))
	if err != nil {
		return nil, err
	}
	return h.Checkout.Submitter(cart), nil
}

func (h *CheckoutHandler) Submit(c *fiber.Ctx) error {
	sub, err := h.submitter(c)
	if err != nil {
		return writeError(c, err)
	}
	var body struct {
		CustomerName string `json:"customerName"`
		CustomerID   string `json:"customerId"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	conf, err := sub.Submit(c.UserContext(), services.Customer{Name: body.CustomerName, ID: body.CustomerID})
	if err != nil {
		applog.Info(c, "checkout.not_confirmed", map[string]any{"reason": err.Error()})
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"confirmationId": conf.ID,
		"receiptUrl":     fmt.Sprintf("/api/v1/receipts/%d", conf.ID),
		"pageUrl":        fmt.Sprintf("/reservas/%d", conf.ID),
		"fileName":       conf.FileName,
		"total":          conf.Order.TotalCost.StringFixed(2),
		"items":          conf.Items,
	})
}

func (h *CheckoutHandler) State(c *fiber.Ctx) error {
	sub, err := h.submitter(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(sub.State())
}
