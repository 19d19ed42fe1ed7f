package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/incident-api/internal/service"
)

const (
	identityLocal = "identity"
	userIDLocal   = "user_id"
	usernameLocal = "username"
)

func bindIdentity(c *fiber.Ctx, identity service.Identity) {
	c.Locals(identityLocal, identity)
	c.Locals(userIDLocal, identity.ID)
	c.Locals(usernameLocal, identity.Username)
}

// IdentityFromContext returns the admin identity bound by JWTProtected.
func IdentityFromContext(c *fiber.Ctx) (service.Identity, bool) {
	identity, ok := c.Locals(identityLocal).(service.Identity)
	if !ok || identity.ID == 0 {
		return service.Identity{}, false
	}
	return identity, true
}
