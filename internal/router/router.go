package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-auth/internal/handler"
	"github.com/iliyamo/storefront-auth/internal/middleware"
	"github.com/iliyamo/storefront-auth/internal/model"
	"github.com/iliyamo/storefront-auth/internal/utils"
)

// Deps is everything the route table needs.
type Deps struct {
	Auth      *handler.AuthHandler
	Reset     *handler.ResetHandler
	Issuer    *utils.TokenIssuer
	RateLimit echo.MiddlewareFunc     // applied to unauthenticated auth endpoints; nil for none
	Health    map[string]handler.Pinger // dependencies reported by /healthz
}

// RegisterRoutes mounts the health check, the /api/auth group, the reset
// flow and the admin area.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.Health))

	limited := []echo.MiddlewareFunc{}
	if d.RateLimit != nil {
		limited = append(limited, d.RateLimit)
	}
	jwt := middleware.JWTAuth(d.Issuer)

	auth := e.Group("/api/auth")
	auth.POST("/register", d.Auth.Register, limited...)
	auth.POST("/send-otp", d.Auth.SendOTP, limited...)
	auth.POST("/verify-otp", d.Auth.VerifyOTP, limited...)
	auth.POST("/login", d.Auth.Login, limited...)
	auth.POST("/logout", d.Auth.Logout, middleware.OptionalJWT(d.Issuer))
	auth.GET("/check-auth", d.Auth.CheckAuth, jwt)

	reset := e.Group("/api/reset-password", limited...)
	reset.POST("/request", d.Reset.Request)
	reset.POST("/redeem", d.Reset.Redeem)

	admin := e.Group("/api/admin", jwt, middleware.RequireRole(model.RoleAdmin))
	admin.GET("/session", d.Auth.AdminSession)
}
