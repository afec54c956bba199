package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/storefront-auth/internal/logging"
	"github.com/iliyamo/storefront-auth/internal/mail"
	"github.com/iliyamo/storefront-auth/internal/model"
	"github.com/iliyamo/storefront-auth/internal/repository"
	"github.com/iliyamo/storefront-auth/internal/utils"
)

// saveAttempts bounds the optimistic retries of an OTP issuance that keeps
// losing the version race.
const saveAttempts = 3

// OTPService issues and validates e-mail verification codes.  At most one
// code is pending per account; each issuance replaces the previous one.
type OTPService struct {
	Accounts AccountStore
	Mailer   mail.Sender
	TTL      time.Duration
	Log      logging.Logger
	Now      func() time.Time
}

// OTPIssue describes the outcome of a successful Issue call.
type OTPIssue struct {
	AlreadyVerified bool
	ExpiresAt       time.Time
}

// Issue generates a fresh code, stores its hash with an expiry of now+TTL
// and e-mails it.  A delivery failure fails the call with ErrDelivery; the
// stored code is left in place and the next Issue replaces it.
func (s *OTPService) Issue(ctx context.Context, email string) (OTPIssue, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return OTPIssue{}, invalid("email", "Invalid email format!")
	}

	var (
		code string
		acc  model.Account
	)
	for attempt := 1; ; attempt++ {
		var err error
		acc, err = s.Accounts.FindByEmailWithOTP(ctx, email)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return OTPIssue{}, ErrNotFound
			}
			return OTPIssue{}, fmt.Errorf("load account: %w", err)
		}
		if acc.Verified {
			return OTPIssue{AlreadyVerified: true}, nil
		}

		code, err = utils.NewOTP()
		if err != nil {
			return OTPIssue{}, err
		}
		acc.SetOTP(utils.HashOTP(code), s.now().Add(s.TTL))
		err = s.Accounts.Save(ctx, &acc)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrStaleVersion) || attempt >= saveAttempts {
			return OTPIssue{}, fmt.Errorf("store otp: %w", err)
		}
	}

	if err := s.Mailer.Send(ctx, mail.OTPMessage(acc.Email, code, s.TTL)); err != nil {
		s.Log.Error(ctx, "otp delivery failed", "account_id", acc.ID, "err", err)
		return OTPIssue{}, fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	s.Log.Info(ctx, "otp issued", "account_id", acc.ID)
	return OTPIssue{ExpiresAt: *acc.OTPExpiresAt}, nil
}

// Validate redeems a code.  A mismatch (or no pending code) is
// ErrInvalidCode; a matching code past its expiry is ErrExpired.  On
// success the account becomes verified and the code is cleared.  Validating
// an account that is already verified succeeds without changes.
func (s *OTPService) Validate(ctx context.Context, email, code string) error {
	email = NormalizeEmail(email)
	acc, err := s.Accounts.FindByEmailWithOTP(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load account: %w", err)
	}
	if acc.Verified {
		return nil
	}
	if !acc.HasPendingOTP() || !utils.EqualHash(acc.OTPHash, utils.HashOTP(code)) {
		return ErrInvalidCode
	}
	if s.now().After(*acc.OTPExpiresAt) {
		return ErrExpired
	}

	acc.MarkVerified()
	if err := s.Accounts.Save(ctx, &acc); err != nil {
		if !errors.Is(err, repository.ErrStaleVersion) {
			return fmt.Errorf("store verification: %w", err)
		}
		// Someone else touched the account in between: either a parallel
		// validation already verified it or a new code replaced this one.
		cur, lerr := s.Accounts.FindByID(ctx, acc.ID)
		if lerr == nil && cur.Verified {
			return nil
		}
		return ErrInvalidCode
	}
	s.Log.Info(ctx, "account verified", "account_id", acc.ID)
	return nil
}

func (s *OTPService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
