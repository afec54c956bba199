package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-auth/internal/model"
	"github.com/iliyamo/storefront-auth/internal/utils"
)

// Context keys populated by JWTAuth.
const (
	ContextClaims = "claims"
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// IdentityFrom returns the identity JWTAuth attached to the request.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	cl, ok := c.Get(ContextClaims).(*utils.Claims)
	if !ok || cl == nil {
		return model.Identity{}, false
	}
	return cl.Identity(), true
}

// userID is the authenticated account id, or "anon".
func userID(c echo.Context) string {
	if s, ok := c.Get(ContextUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}

// deny writes the standard failure envelope.
func deny(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}

const msgUnauthorized = "Unauthorized user!"

