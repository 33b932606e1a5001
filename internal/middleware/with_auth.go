package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-course-api/internal/utils"
)

// AuthRoleAny lets any role through WithAuth.
const AuthRoleAny = "any"

// AuthOptions configures WithAuth.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth wraps a single handler with user and role guards. Staff roles may
// act wherever a student can.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}
	requireUser := opts.RequireUser || role != AuthRoleAny

	return func(c *fiber.Ctx) error {
		if requireUser {
			if id, ok := c.Locals(LocalUserID).(uint); !ok || id == 0 {
				return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
			}
		}

		current := normalizeRoleValue(c.Locals(LocalUserRole))
		switch role {
		case AuthRoleAny:
		case RoleStudent:
			if current != RoleStudent && current != RoleTeacher && current != RoleAdmin {
				return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
			}
		case RoleAdmin:
			if current != RoleAdmin && current != RoleTeacher {
				return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
			}
		default:
			if current != role {
				return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
			}
		}

		return handler(c)
	}
}
