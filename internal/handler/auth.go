package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-auth/internal/logging"
	"github.com/iliyamo/storefront-auth/internal/middleware"
	"github.com/iliyamo/storefront-auth/internal/model"
	"github.com/iliyamo/storefront-auth/internal/service"
)

// AuthHandler serves registration, verification, login and session
// endpoints.
type AuthHandler struct {
	Accounts *service.AccountService
	OTP      *service.OTPService
	Log      logging.Logger
}

func NewAuthHandler(accounts *service.AccountService, otp *service.OTPService, log logging.Logger) *AuthHandler {
	return &AuthHandler{Accounts: accounts, OTP: otp, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"userName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type emailReq struct {
	Email string `json:"email"`
}
type verifyOTPReq struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPart struct {
	ID       string     `json:"id"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
	Username string     `json:"userName"`
	Verified bool       `json:"verified"`
}

func toUserPart(a model.Account) userPart {
	return userPart{ID: a.ID, Email: a.Email, Role: a.Role, Username: a.Username, Verified: a.Verified}
}

var errBody = outcome{http.StatusBadRequest, "Invalid request body!"}

// Register: create an unverified account.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, errBody.status, errBody.msg)
	}
	ctx, cancel := withTimeout(c, storeTimeout)
	defer cancel()

	acc, err := h.Accounts.Register(ctx, service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondErr(c, h.Log, "register", err, map[error]outcome{
			service.ErrEmailTaken:    {http.StatusConflict, "User already exists with the same email! Please try again"},
			service.ErrUsernameTaken: {http.StatusConflict, "User already exists with the same username! Please try again"},
		})
	}
	return ok(c, http.StatusCreated, "Registration successful! Please verify your email with the OTP.",
		echo.Map{"user": toUserPart(acc)})
}

// SendOTP: (re)issue a verification code.
func (h *AuthHandler) SendOTP(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return fail(c, errBody.status, errBody.msg)
	}
	ctx, cancel := withTimeout(c, mailTimeout)
	defer cancel()

	res, err := h.OTP.Issue(ctx, req.Email)
	if err != nil {
		return respondErr(c, h.Log, "send otp", err, map[error]outcome{
			service.ErrNotFound: {http.StatusNotFound, "User not found! Please register first."},
			service.ErrDelivery: {http.StatusInternalServerError, "OTP could not be delivered"},
		})
	}
	if res.AlreadyVerified {
		return ok(c, http.StatusOK, "Account already verified!", nil)
	}
	return ok(c, http.StatusOK, "OTP sent to your email!", echo.Map{"expiresAt": res.ExpiresAt.Format(time.RFC3339)})
}

// VerifyOTP: redeem a code and mark the account verified.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req verifyOTPReq
	if err := c.Bind(&req); err != nil {
		return fail(c, errBody.status, errBody.msg)
	}
	ctx, cancel := withTimeout(c, storeTimeout)
	defer cancel()

	if err := h.OTP.Validate(ctx, req.Email, req.OTP); err != nil {
		return respondErr(c, h.Log, "verify otp", err, map[error]outcome{
			service.ErrNotFound:    {http.StatusNotFound, "User not found!"},
			service.ErrInvalidCode: {http.StatusBadRequest, "Invalid OTP! Please try again."},
			service.ErrExpired:     {http.StatusBadRequest, "OTP has expired! Please request a new one."},
		})
	}
	return ok(c, http.StatusOK, "OTP verified successfully! Registration complete.", nil)
}

// Login: verify credentials and return a bearer token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, errBody.status, errBody.msg)
	}
	ctx, cancel := withTimeout(c, storeTimeout)
	defer cancel()

	res, err := h.Accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		return respondErr(c, h.Log, "login", err, map[error]outcome{
			service.ErrNotFound:     {http.StatusNotFound, "User doesn't exist! Please register first."},
			service.ErrForbidden:    {http.StatusForbidden, "Account not verified! Please verify your email."},
			service.ErrUnauthorized: {http.StatusUnauthorized, "Incorrect password! Please try again."},
		})
	}
	return ok(c, http.StatusOK, "Logged in successfully", echo.Map{
		"token":     res.Token.Token,
		"expiresAt": res.Token.Exp.Format(time.RFC3339),
		"user":      toUserPart(res.Account),
	})
}

// Logout is stateless: tokens simply age out, the client drops its copy.
func (h *AuthHandler) Logout(c echo.Context) error {
	if id, found := middleware.IdentityFrom(c); found {
		h.Log.Info(c.Request().Context(), "logout", "account_id", id.AccountID)
	}
	return ok(c, http.StatusOK, "Logged out successfully!", nil)
}

// CheckAuth echoes the identity resolved by JWTAuth.
func (h *AuthHandler) CheckAuth(c echo.Context) error {
	id, found := middleware.IdentityFrom(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Unauthorized user!")
	}
	return ok(c, http.StatusOK, "Authenticated user!", echo.Map{"user": id})
}

// AdminSession is CheckAuth for the admin area; RequireRole guards it.
func (h *AuthHandler) AdminSession(c echo.Context) error {
	id, found := middleware.IdentityFrom(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Unauthorized user!")
	}
	return ok(c, http.StatusOK, "Authenticated admin!", echo.Map{"user": id})
}
