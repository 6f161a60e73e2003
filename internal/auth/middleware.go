package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/guildkit/ticketd/internal/domain"
	"github.com/guildkit/ticketd/pkg/util"
)

const claimsContextKey = "auth_claims"

// RequireAuth verifies the bearer token and stores its claims on the
// request context.
func RequireAuth(tokens *TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return util.NewUnauthorized("missing bearer token")
		}
		claims, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return util.NewUnauthorized("invalid or expired token")
		}
		c.Locals(claimsContextKey, claims)
		return c.Next()
	}
}

// RequireRole gates a route to a minimum staff role. ADMIN passes every
// gate.
func RequireRole(role domain.StaffRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := ClaimsFromContext(c)
		if claims == nil {
			return util.NewUnauthorized("missing bearer token")
		}
		if claims.Role != role && claims.Role != domain.StaffRoleAdmin {
			return util.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// ClaimsFromContext returns the verified claims stored by RequireAuth,
// or nil when the request is unauthenticated.
func ClaimsFromContext(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(claimsContextKey).(*Claims)
	return claims
}
