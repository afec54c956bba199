package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-auth/internal/utils"
)

// JWTAuth validates the bearer token in the Authorization header and puts
// its claims into the request context (ContextClaims, ContextUserID,
// ContextRole).  Missing, malformed, forged and expired tokens all get the
// same 401 response.
func JWTAuth(issuer *utils.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return deny(c, http.StatusUnauthorized, msgUnauthorized)
			}
			claims, err := issuer.Verify(raw)
			if err != nil {
				return deny(c, http.StatusUnauthorized, msgUnauthorized)
			}
			c.Set(ContextClaims, claims)
			c.Set(ContextUserID, claims.AccountID)
			c.Set(ContextRole, string(claims.Role))
			return next(c)
		}
	}
}

// OptionalJWT attaches claims like JWTAuth when a valid bearer token is
// present and otherwise lets the request through untouched.
func OptionalJWT(issuer *utils.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization)); ok {
				if claims, err := issuer.Verify(raw); err == nil {
					c.Set(ContextClaims, claims)
					c.Set(ContextUserID, claims.AccountID)
					c.Set(ContextRole, string(claims.Role))
				}
			}
			return next(c)
		}
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value.  The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	const scheme = "bearer "
	if len(header) <= len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
		return "", false
	}
	raw := strings.TrimSpace(header[len(scheme):])
	return raw, raw != ""
}
