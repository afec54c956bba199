package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-auth/internal/logging"
	"github.com/iliyamo/storefront-auth/internal/service"
)

// ResetHandler serves the two steps of the password reset flow.
type ResetHandler struct {
	Resets *service.ResetService
	Log    logging.Logger
}

func NewResetHandler(resets *service.ResetService, log logging.Logger) *ResetHandler {
	return &ResetHandler{Resets: resets, Log: log}
}

type redeemReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

const msgResetRequested = "If an account exists for this email, a reset link has been sent."

// Request: same answer whether or not the account exists.
func (h *ResetHandler) Request(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return fail(c, errBody.status, errBody.msg)
	}
	ctx, cancel := withTimeout(c, mailTimeout)
	defer cancel()

	if err := h.Resets.RequestReset(ctx, req.Email); err != nil {
		return respondErr(c, h.Log, "reset request", err, nil)
	}
	return ok(c, http.StatusOK, msgResetRequested, nil)
}

// Redeem: set a new password with a reset token.
func (h *ResetHandler) Redeem(c echo.Context) error {
	var req redeemReq
	if err := c.Bind(&req); err != nil {
		return fail(c, errBody.status, errBody.msg)
	}
	ctx, cancel := withTimeout(c, storeTimeout)
	defer cancel()

	if err := h.Resets.Redeem(ctx, req.Token, req.Password); err != nil {
		return respondErr(c, h.Log, "reset redeem", err, map[error]outcome{
			service.ErrInvalidToken: {http.StatusBadRequest, "Invalid or already used reset token!"},
			service.ErrExpired:      {http.StatusBadRequest, "Reset token has expired! Please request a new one."},
		})
	}
	return ok(c, http.StatusOK, "Password has been reset successfully!", nil)
}
