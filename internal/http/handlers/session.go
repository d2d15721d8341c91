package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const sessionCookie = "sid"

// ensureSID returns the browser session id, issuing one on first contact.
func ensureSID(c *fiber.Ctx) string {
	if sid, ok := c.Locals(sessionCookie).(string); ok {
		return sid
	}
	sid := c.Cookies(sessionCookie)
	if _, err := uuid.Parse(sid); err != nil {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{Name: sessionCookie, Value: sid, Path: "/", HTTPOnly: true, SameSite: "Lax"})
	}
	c.Locals(sessionCookie, sid)
	return sid
}

func isAPI(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api/")
}
