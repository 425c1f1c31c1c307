package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-go/helpdesk/internal/domain"
	apperrors "github.com/helpdesk-go/helpdesk/pkg/util"
)

// RequireRole ensures the authenticated user holds at least the given
// role. Roles are hierarchical, so RequireRole(TECH) admits managers and
// admins too.
func RequireRole(min domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !user.Role.AtLeast(min) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a principal is present without any role
// constraint.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := UserFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
