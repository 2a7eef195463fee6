package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/sunenergyxt/service-portal/internal/domain"
	apperrors "github.com/sunenergyxt/service-portal/pkg/util"
)

// RequireRole ensures the actor holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	names := make([]string, 0, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
		names = append(names, string(role))
	}
	required := strings.Join(names, " or ")

	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, exists := allowedSet[actor.Role]; !exists {
			return apperrors.NewPermissionDenied("insufficient role", required, map[string]any{
				"role": string(actor.Role),
			})
		}
		return c.Next()
	}
}

// RequireHeadquarters admits InternalSales and SuperAdmin.
func RequireHeadquarters() fiber.Handler {
	return RequireRole(domain.RoleSuperAdmin, domain.RoleInternalSales)
}
