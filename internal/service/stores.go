// Package service implements the identity and session authority: account
// registration, e-mail verification by one-time code, login with bearer
// tokens and the password reset flow.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/storefront-auth/internal/model"
)

// AccountStore is the credential store.  Save must be a conditional update
// on model.Account.Version and fail with repository.ErrStaleVersion when the
// stored version moved on.
type AccountStore interface {
	Create(ctx context.Context, a *model.Account) error
	FindByEmail(ctx context.Context, email string) (model.Account, error)
	FindByEmailWithOTP(ctx context.Context, email string) (model.Account, error)
	FindByUsername(ctx context.Context, username string) (model.Account, error)
	FindByID(ctx context.Context, id string) (model.Account, error)
	Save(ctx context.Context, a *model.Account) error
}

// ResetStore persists password reset tokens.  Redeem atomically consumes
// the token and stores the new password hash.
type ResetStore interface {
	Create(ctx context.Context, t *model.PasswordResetToken) error
	FindByHash(ctx context.Context, tokenHash string) (model.PasswordResetToken, error)
	Redeem(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (string, error)
}
