package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/freelancehub/freelancehub_backend/internal/models"
	"github.com/freelancehub/freelancehub_backend/internal/utils"
)

// RequireRoles lets the request through only when the session role is
// one of the given roles. Runs after JWTFromCookie; ownership checks
// against the engagement's party emails happen later, in the
// coordinator.
func RequireRoles(allowed ...models.Role) fiber.Handler {
	allowedSet := make(map[models.Role]bool, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = true
	}

	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok || token == nil {
			return fiber.ErrUnauthorized
		}
		claims, ok := token.Claims.(*utils.Claims)
		if !ok {
			return fiber.ErrUnauthorized
		}

		role := models.Role(strings.ToLower(strings.TrimSpace(claims.Role)))
		if !allowedSet[role] {
			return fiber.NewError(fiber.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}
