package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/storefront-auth/internal/logging"
	"github.com/iliyamo/storefront-auth/internal/mail"
	"github.com/iliyamo/storefront-auth/internal/model"
	"github.com/iliyamo/storefront-auth/internal/repository"
	"github.com/iliyamo/storefront-auth/internal/utils"
)

// ResetService runs the password reset flow with single-use tokens that
// are independent of the verification codes.
type ResetService struct {
	Accounts   AccountStore
	Resets     ResetStore
	Mailer     mail.Sender
	TTL        time.Duration
	URLBase    string
	BcryptCost int
	Log        logging.Logger
	Now        func() time.Time
}

// RequestReset e-mails a reset link when the account exists.  The result
// is the same whether or not it does; storage and delivery problems are
// logged, never returned.
func (s *ResetService) RequestReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return err
	}

	acc, err := s.Accounts.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.Log.Error(ctx, "reset request: load account failed", "err", err)
		}
		return nil
	}

	raw, hash, err := utils.NewResetToken()
	if err != nil {
		s.Log.Error(ctx, "reset request: token generation failed", "err", err)
		return nil
	}
	now := s.now()
	tok := model.PasswordResetToken{
		AccountID: acc.ID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.TTL),
		CreatedAt: now,
	}
	if err := s.Resets.Create(ctx, &tok); err != nil {
		s.Log.Error(ctx, "reset request: store token failed", "account_id", acc.ID, "err", err)
		return nil
	}
	if err := s.Mailer.Send(ctx, mail.ResetMessage(acc.Email, s.link(raw), s.TTL)); err != nil {
		s.Log.Error(ctx, "reset request: delivery failed", "account_id", acc.ID, "err", err)
		return nil
	}
	s.Log.Info(ctx, "reset token issued", "account_id", acc.ID, "token_id", tok.ID)
	return nil
}

// Redeem sets a new password using a reset token.  Unknown or already
// consumed tokens are ErrInvalidToken, tokens past expiry ErrExpired.  The
// store consumes the token atomically, so a token can only ever succeed
// once.
func (s *ResetService) Redeem(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hash := utils.HashSecret(token)
	now := s.now()

	// Cheap pre-check so that bogus tokens do not cost a bcrypt round.
	t, err := s.Resets.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("load reset token: %w", err)
	}
	if t.Consumed() {
		return ErrInvalidToken
	}
	if t.ExpiredAt(now) {
		return ErrExpired
	}

	pwHash, err := utils.HashPassword(newPassword, s.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	accountID, err := s.Resets.Redeem(ctx, hash, now, pwHash)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrTokenConsumed):
			return ErrInvalidToken
		case errors.Is(err, repository.ErrTokenExpired):
			return ErrExpired
		}
		return fmt.Errorf("redeem reset token: %w", err)
	}
	s.Log.Info(ctx, "password reset", "account_id", accountID)
	return nil
}

func (s *ResetService) link(raw string) string {
	sep := "?"
	if strings.Contains(s.URLBase, "?") {
		sep = "&"
	}
	return s.URLBase + sep + "token=" + url.QueryEscape(raw)
}

func (s *ResetService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
