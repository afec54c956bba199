package utils // package utils provides helpers for token creation, hashing and secrets

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens

	"github.com/iliyamo/storefront-auth/internal/model"
)

// ErrInvalidToken covers every verification failure: bad signature,
// malformed structure, wrong algorithm or expiry.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of a bearer token.  The JSON names match what the
// storefront front end decodes from the token.
type Claims struct {
	AccountID string     `json:"id"`
	Role      model.Role `json:"role"`
	Email     string     `json:"email"`
	Username  string     `json:"userName"`
	jwt.RegisteredClaims
}

// Identity projects the claims onto the request identity.
func (c *Claims) Identity() model.Identity {
	return model.Identity{AccountID: c.AccountID, Role: c.Role, Email: c.Email, Username: c.Username}
}

// AccessToken represents a signed bearer token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenIssuer mints and verifies HS256 bearer tokens.  It holds no mutable
// state and is safe for concurrent use.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer signing with secret; every token lives
// for ttl from the moment it is minted.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source; used by tests around expiry.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	cp := *i
	cp.now = now
	return &cp
}

// TTL returns the fixed token lifetime.
func (i *TokenIssuer) TTL() time.Duration { return i.ttl }

// Issue signs a token for the account.  The expiry is absolute and fixed
// at mint time.
func (i *TokenIssuer) Issue(a model.Account) (AccessToken, error) {
	now := i.now().UTC()
	exp := now.Add(i.ttl)
	claims := Claims{
		AccountID: a.ID,
		Role:      a.Role,
		Email:     a.Email,
		Username:  a.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return AccessToken{}, fmt.Errorf("sign token: %w", err)
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// Verify checks signature, algorithm, expiry and the role claim and
// returns the claims.
// All failures wrap ErrInvalidToken.
func (i *TokenIssuer) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid || claims.AccountID == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
