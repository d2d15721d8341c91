package handlers

import "github.com/gofiber/fiber/v2"

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if name, ok := c.Locals("storeName").(string); ok {
		data["StoreName"] = name
	}
	// token the CSRF middleware put into Locals; the cookie is the fallback
	tok, _ := c.Locals("csrf").(string)
	if tok == "" {
		tok = c.Cookies("csrf_")
	}
	data["CSRFToken"] = tok
	return c.Render(tmpl, data)
}

// notFound renders the friendly page for HTML routes and JSON for the API.
func notFound(c *fiber.Ctx, msg string) error {
	if isAPI(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": msg})
	}
	return render(c.Status(fiber.StatusNotFound), "notfound", fiber.Map{"Message": msg})
}
