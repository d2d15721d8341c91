package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/backend"
	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
)

const friendlyMessage = "Algo salió mal. Intente nuevamente."

// writeError maps the service error taxonomy onto a status and a message the
// customer can act on. Anything unrecognised goes to the app ErrorHandler.
func writeError(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	var rej *services.ServerRejection
	var nerr *services.NetworkError

	status := 0
	body := fiber.Map{"error": err.Error()}
	switch {
	case errors.As(err, &verr):
		status = fiber.StatusBadRequest
		body["field"] = verr.Field
	case errors.As(err, &rej):
		status = fiber.StatusBadGateway
	case errors.As(err, &nerr):
		status = fiber.StatusServiceUnavailable
	case errors.Is(err, services.ErrSubmissionInFlight),
		errors.Is(err, services.ErrFetchInFlight),
		errors.Is(err, services.ErrNoMorePages),
		errors.Is(err, services.ErrOutOfStock):
		status = fiber.StatusConflict
	case errors.Is(err, domain.ErrInvalidPrice):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrProductNotListed), errors.Is(err, services.ErrUnknownCartKind):
		status = fiber.StatusNotFound
	case errors.Is(err, backend.ErrTransport):
		status = fiber.StatusServiceUnavailable
		body["error"] = "Verifique su red e intente nuevamente."
	case errors.Is(err, backend.ErrCatalogUnavailable):
		status = fiber.StatusBadGateway
		body["error"] = "No se pudo cargar el catálogo. Intente nuevamente."
	default:
		return err
	}
	if status >= 500 {
		applog.Warn(c, "api.upstream_error", err, nil)
	}
	return c.Status(status).JSON(body)
}

// ErrorHandler is the last stop for unmapped errors: log the detail, show a
// friendly message.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := friendlyMessage
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < 500 {
		code = fe.Code
		msg = fe.Message
	}
	if code >= 500 {
		applog.Error(c, "server.error", err, nil)
	}
	if isAPI(c) {
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
	if rerr := render(c.Status(code), "notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}
