package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-auth/internal/model"
)

// RequireRole lets the request through only when the role stored by
// JWTAuth is one of roles; anything else is 403.  It must run after
// JWTAuth.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[string(r)] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(ContextRole).(string)
			if !ok || !allowed[role] {
				return deny(c, http.StatusForbidden, "Forbidden!")
			}
			return next(c)
		}
	}
}
