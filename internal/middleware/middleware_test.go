package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/storefront-auth/internal/config"
	"github.com/iliyamo/storefront-auth/internal/logging"
	"github.com/iliyamo/storefront-auth/internal/model"
	"github.com/iliyamo/storefront-auth/internal/utils"
)

func newProtected(issuer *utils.TokenIssuer, mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	chain := append([]echo.MiddlewareFunc{JWTAuth(issuer)}, mw...)
	e.GET("/me", func(c echo.Context) error {
		id, ok := IdentityFrom(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, id)
	}, chain...)
	return e
}

func call(e *echo.Echo, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func account(role model.Role) model.Account {
	return model.Account{ID: "acc-1", Username: "alice", Email: "alice@x.com", Role: role}
}

func TestJWTAuth_AcceptsValidToken(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret", 15*time.Minute)
	tok, err := issuer.Issue(account(model.RoleUser))
	require.NoError(t, err)

	rec := call(newProtected(issuer), "Bearer "+tok.Token)
	require.Equal(t, http.StatusOK, rec.Code)

	var id model.Identity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &id))
	assert.Equal(t, model.Identity{AccountID: "acc-1", Role: model.RoleUser, Email: "alice@x.com", Username: "alice"}, id)
}

func TestJWTAuth_UniformRejection(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret", 15*time.Minute)
	past := issuer.WithClock(func() time.Time { return time.Now().Add(-time.Hour) })
	expired, err := past.Issue(account(model.RoleUser))
	require.NoError(t, err)
	forged, err := utils.NewTokenIssuer("other", 15*time.Minute).Issue(account(model.RoleAdmin))
	require.NoError(t, err)

	e := newProtected(issuer)
	cases := map[string]string{
		"missing":      "",
		"wrong scheme": "Basic Zm9vOmJhcg==",
		"empty bearer": "Bearer ",
		"garbage":      "Bearer not.a.jwt",
		"expired":      "Bearer " + expired.Token,
		"forged":       "Bearer " + forged.Token,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rec := call(e, header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"success":false,"message":"Unauthorized user!"}`, rec.Body.String())
		})
	}
}

func TestRequireRole(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret", 15*time.Minute)
	e := newProtected(issuer, RequireRole(model.RoleAdmin))

	user, err := issuer.Issue(account(model.RoleUser))
	require.NoError(t, err)
	admin, err := issuer.Issue(account(model.RoleAdmin))
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, call(e, "Bearer "+user.Token).Code)
	assert.Equal(t, http.StatusOK, call(e, "Bearer "+admin.Token).Code)
	assert.Equal(t, http.StatusUnauthorized, call(e, "").Code)
}

func TestBearerToken(t *testing.T) {
	raw, ok := BearerToken("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", raw)

	_, ok = BearerToken("Bearer")
	assert.False(t, ok)
}

func TestTokenBucket_BlocksAfterCapacity(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	e := echo.New()
	e.POST("/api/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		newTokenBucket(cfg, rdb, logging.Discard(), clock))

	hit := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	first := hit()
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusNoContent, hit().Code)

	blocked := hit()
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "60", blocked.Header().Get("Retry-After"))
	assert.Contains(t, blocked.Body.String(), `"success":false`)

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusNoContent, hit().Code)
}

func TestTokenBucket_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute}
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		NewTokenBucket(cfg, rdb, nil))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestTokenBucket_DisabledIsPassThrough(t *testing.T) {
	called := false
	h := NewTokenBucket(config.RateLimitConfig{}, nil, nil)(func(c echo.Context) error {
		called = true
		return nil
	})
	e := echo.New()
	require.NoError(t, h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())))
	assert.True(t, called)
}

func TestOptionalJWT(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret", 15*time.Minute)
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		id, ok := IdentityFrom(c)
		if !ok {
			return c.String(http.StatusOK, "anonymous")
		}
		return c.String(http.StatusOK, id.AccountID)
	}, OptionalJWT(issuer))

	tok, err := issuer.Issue(account(model.RoleUser))
	require.NoError(t, err)

	assert.Equal(t, "acc-1", call(e, "Bearer "+tok.Token).Body.String())
	assert.Equal(t, "anonymous", call(e, "Bearer junk").Body.String())
	assert.Equal(t, "anonymous", call(e, "").Body.String())
}
