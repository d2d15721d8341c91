package handlers

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/repos"
	"storefront/internal/validate"
)

type ReceiptStore interface {
	Get(ctx context.Context, owner string, id int64) (repos.ReceiptRow, error)
	ListLatest(ctx context.Context, owner string, limit int) ([]repos.ReceiptSummary, error)
}

// ReceiptHandler serves archived receipts of confirmed reservations. A
// session only ever sees the receipts it placed.
type ReceiptHandler struct {
	Receipts ReceiptStore
}

func (h *ReceiptHandler) find(c *fiber.Ctx) (repos.ReceiptRow, bool, error) {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return repos.ReceiptRow{}, false, nil
	}
	row, err := h.Receipts.Get(c.UserContext(), repos.SessionKey(ensureSID(c)), id)
	if errors.Is(err, sql.ErrNoRows) {
		return repos.ReceiptRow{}, false, nil
	}
	if err != nil {
		return repos.ReceiptRow{}, false, err
	}
	return row, true, nil
}

// Download sends the PDF as an attachment.
func (h *ReceiptHandler) Download(c *fiber.Ctx) error {
	row, found, err := h.find(c)
	if err != nil {
		return err
	}
	if !found {
		return notFound(c, "Comprobante no encontrado")
	}
	applog.Info(c, "receipt.download", map[string]any{"confirmation_id": row.ConfirmationID})
	c.Attachment(row.FileName)
	c.Set(fiber.HeaderContentType, "application/pdf")
	return c.Send(row.Body)
}

// Page is the pickup confirmation shown after a reservation.
func (h *ReceiptHandler) Page(c *fiber.Ctx) error {
	row, found, err := h.find(c)
	if err != nil {
		return err
	}
	if !found {
		return notFound(c, "Reserva no encontrada")
	}
	return render(c, "confirmation", fiber.Map{"Receipt": row})
}

// List returns the session's most recent reservations, newest first.
func (h *ReceiptHandler) List(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	out, err := h.Receipts.ListLatest(c.UserContext(), repos.SessionKey(ensureSID(c)), limit)
	if err != nil {
		return err
	}
	return c.JSON(out)
}
