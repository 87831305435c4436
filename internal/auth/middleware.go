package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"gridbase/internal/engine"
)

// Gate returns the authentication middleware every engine-facing route
// sits behind. It extracts the bearer token, verifies it, and attaches
// the identity to the request. NoToken and InvalidToken are distinct
// codes internally but share one wire message.
func Gate(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return engine.NoTokenError()
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return engine.NoTokenError()
		}

		ident, err := svc.Verify(parts[1])
		if err != nil {
			return engine.InvalidTokenError()
		}

		c.Locals("identity", ident)
		return c.Next()
	}
}

// GetIdentity extracts the verified identity from a request context.
func GetIdentity(c *fiber.Ctx) *Identity {
	ident, _ := c.Locals("identity").(*Identity)
	return ident
}
