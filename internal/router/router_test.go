package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/storefront-auth/internal/handler"
	"github.com/iliyamo/storefront-auth/internal/logging"
	"github.com/iliyamo/storefront-auth/internal/mail"
	"github.com/iliyamo/storefront-auth/internal/model"
	"github.com/iliyamo/storefront-auth/internal/repository"
	"github.com/iliyamo/storefront-auth/internal/service"
	"github.com/iliyamo/storefront-auth/internal/utils"
)

var (
	otpRe  = regexp.MustCompile(`Your OTP code is: (\d{6})`)
	linkRe = regexp.MustCompile(`https://\S+`)
)

type app struct {
	e        *echo.Echo
	accounts *repository.MemoryAccounts
	issuer   *utils.TokenIssuer

	mu    sync.Mutex
	inbox []mail.Message
}

func newApp(t *testing.T) *app {
	t.Helper()
	a := &app{}
	log := logging.Discard()
	a.accounts = repository.NewMemoryAccounts()
	resets := repository.NewMemoryResets(a.accounts)
	a.issuer = utils.NewTokenIssuer("router-secret", 15*time.Minute)
	sender := mail.SenderFunc(func(_ context.Context, m mail.Message) error {
		a.mu.Lock()
		a.inbox = append(a.inbox, m)
		a.mu.Unlock()
		return nil
	})

	accounts := &service.AccountService{Accounts: a.accounts, Tokens: a.issuer, BcryptCost: bcrypt.MinCost, Log: log}
	otp := &service.OTPService{Accounts: a.accounts, Mailer: sender, TTL: 10 * time.Minute, Log: log}
	reset := &service.ResetService{
		Accounts: a.accounts, Resets: resets, Mailer: sender, TTL: time.Hour,
		URLBase: "https://shop.example/reset", BcryptCost: bcrypt.MinCost, Log: log,
	}

	a.e = echo.New()
	a.e.HTTPErrorHandler = handler.ErrorHandler(log)
	RegisterRoutes(a.e, Deps{
		Auth:   handler.NewAuthHandler(accounts, otp, log),
		Reset:  handler.NewResetHandler(reset, log),
		Issuer: a.issuer,
	})
	return a
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	User    json.RawMessage `json:"user"`
}

func (a *app) do(t *testing.T, method, path string, body any, bearer string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (a *app) lastMail(t *testing.T) string {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	require.NotEmpty(t, a.inbox)
	return a.inbox[len(a.inbox)-1].Body
}

const pw = "Secr3t!pass"

func (a *app) verifiedAlice(t *testing.T) {
	t.Helper()
	code, _ := a.do(t, http.MethodPost, "/api/auth/register", echo.Map{"userName": "alice", "email": "alice@x.com", "password": pw}, "")
	require.Equal(t, http.StatusCreated, code)
	code, _ = a.do(t, http.MethodPost, "/api/auth/send-otp", echo.Map{"email": "alice@x.com"}, "")
	require.Equal(t, http.StatusOK, code)
	otp := otpRe.FindStringSubmatch(a.lastMail(t))[1]
	code, _ = a.do(t, http.MethodPost, "/api/auth/verify-otp", echo.Map{"email": "alice@x.com", "otp": " " + otp + " "}, "")
	require.Equal(t, http.StatusOK, code)
}

func TestAuthFlow(t *testing.T) {
	a := newApp(t)

	code, env := a.do(t, http.MethodPost, "/api/auth/register", echo.Map{"userName": "alice", "email": "Alice@X.com", "password": pw}, "")
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, env.Success)

	code, env = a.do(t, http.MethodPost, "/api/auth/register", echo.Map{"userName": "bob", "email": "alice@x.com", "password": pw}, "")
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, env.Success)

	code, _ = a.do(t, http.MethodPost, "/api/auth/login", echo.Map{"email": "alice@x.com", "password": pw}, "")
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.do(t, http.MethodPost, "/api/auth/send-otp", echo.Map{"email": "alice@x.com"}, "")
	require.Equal(t, http.StatusOK, code)
	otp := otpRe.FindStringSubmatch(a.lastMail(t))[1]

	wrong := "000000"
	if otp == wrong {
		wrong = "999999"
	}
	code, env = a.do(t, http.MethodPost, "/api/auth/verify-otp", echo.Map{"email": "alice@x.com", "otp": wrong}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid OTP! Please try again.", env.Message)

	code, _ = a.do(t, http.MethodPost, "/api/auth/verify-otp", echo.Map{"email": "alice@x.com", "otp": otp}, "")
	require.Equal(t, http.StatusOK, code)

	code, _ = a.do(t, http.MethodPost, "/api/auth/login", echo.Map{"email": "alice@x.com", "password": "Wr0ng!pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = a.do(t, http.MethodPost, "/api/auth/login", echo.Map{"email": "alice@x.com", "password": pw}, "")
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, env.Token)

	code, env = a.do(t, http.MethodGet, "/api/auth/check-auth", nil, env.Token)
	require.Equal(t, http.StatusOK, code)
	var id model.Identity
	require.NoError(t, json.Unmarshal(env.User, &id))
	assert.Equal(t, "alice@x.com", id.Email)
	assert.Equal(t, "alice", id.Username)
	assert.Equal(t, model.RoleUser, id.Role)

	code, env = a.do(t, http.MethodPost, "/api/auth/logout", nil, "garbage")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
}

func TestStatusCodes(t *testing.T) {
	a := newApp(t)

	code, _ := a.do(t, http.MethodPost, "/api/auth/register", echo.Map{"userName": "x", "email": "bad", "password": pw}, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(t, http.MethodPost, "/api/auth/send-otp", echo.Map{"email": "ghost@x.com"}, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = a.do(t, http.MethodPost, "/api/auth/verify-otp", echo.Map{"email": "ghost@x.com", "otp": "123456"}, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = a.do(t, http.MethodPost, "/api/auth/login", echo.Map{"email": "ghost@x.com", "password": pw}, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = a.do(t, http.MethodPost, "/api/auth/login", echo.Map{"email": "not-an-email", "password": pw}, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := a.do(t, http.MethodGet, "/api/auth/check-auth", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Unauthorized user!", env.Message)

	code, env = a.do(t, http.MethodGet, "/api/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "API route not found", env.Message)
}

func TestAdminSessionRequiresAdminRole(t *testing.T) {
	a := newApp(t)
	user, err := a.issuer.Issue(model.Account{ID: "u1", Email: "u@x.com", Username: "u", Role: model.RoleUser})
	require.NoError(t, err)
	admin, err := a.issuer.Issue(model.Account{ID: "a1", Email: "a@x.com", Username: "a", Role: model.RoleAdmin})
	require.NoError(t, err)

	code, _ := a.do(t, http.MethodGet, "/api/admin/session", nil, user.Token)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.do(t, http.MethodGet, "/api/admin/session", nil, admin.Token)
	assert.Equal(t, http.StatusOK, code)
	code, _ = a.do(t, http.MethodGet, "/api/admin/session", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestPasswordResetFlow(t *testing.T) {
	a := newApp(t)
	a.verifiedAlice(t)

	code, ghost := a.do(t, http.MethodPost, "/api/reset-password/request", echo.Map{"email": "ghost@x.com"}, "")
	require.Equal(t, http.StatusOK, code)
	code, known := a.do(t, http.MethodPost, "/api/reset-password/request", echo.Map{"email": "alice@x.com"}, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, ghost, known)

	link, err := url.Parse(linkRe.FindString(a.lastMail(t)))
	require.NoError(t, err)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	code, _ = a.do(t, http.MethodPost, "/api/reset-password/redeem", echo.Map{"token": token, "password": "N3w!password"}, "")
	require.Equal(t, http.StatusOK, code)
	code, env := a.do(t, http.MethodPost, "/api/reset-password/redeem", echo.Map{"token": token, "password": "N3w!password"}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.True(t, strings.Contains(env.Message, "reset token"))

	code, _ = a.do(t, http.MethodPost, "/api/auth/login", echo.Map{"email": "alice@x.com", "password": "N3w!password"}, "")
	assert.Equal(t, http.StatusOK, code)
}

func TestHealthz(t *testing.T) {
	a := newApp(t)
	code, env := a.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
}
