package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/iliyamo/storefront-auth/internal/logging"
	"github.com/iliyamo/storefront-auth/internal/model"
	"github.com/iliyamo/storefront-auth/internal/repository"
	"github.com/iliyamo/storefront-auth/internal/utils"
)

// AccountService covers registration and password login.
type AccountService struct {
	Accounts   AccountStore
	Tokens     *utils.TokenIssuer
	Domains    DomainChecker
	BcryptCost int
	Log        logging.Logger
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult is the authenticated account (default projection) and its
// freshly minted bearer token.
type LoginResult struct {
	Account model.Account
	Token   utils.AccessToken
}

// Register creates an unverified account with role user.  Duplicate email
// or username is reported by the store's unique indexes, not by a prior
// read.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (model.Account, error) {
	username, err := ValidateUsername(in.Username)
	if err != nil {
		return model.Account{}, err
	}
	email := NormalizeEmail(in.Email)
	if err := ValidateEmail(email); err != nil {
		return model.Account{}, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return model.Account{}, err
	}
	if s.Domains != nil {
		ok, err := s.Domains.AcceptsMail(ctx, emailDomain(email))
		if err != nil {
			return model.Account{}, fmt.Errorf("mx lookup: %w", err)
		}
		if !ok {
			return model.Account{}, invalid("email", "Invalid email format or domain!")
		}
	}

	hash, err := utils.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return model.Account{}, fmt.Errorf("hash password: %w", err)
	}
	a := model.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
	if err := s.Accounts.Create(ctx, &a); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return model.Account{}, ErrEmailTaken
		case errors.Is(err, repository.ErrUsernameExists):
			return model.Account{}, ErrUsernameTaken
		}
		return model.Account{}, fmt.Errorf("create account: %w", err)
	}
	s.Log.Info(ctx, "account registered", "account_id", a.ID)
	return a.WithoutOTP(), nil
}

// Login checks the password of a verified account and issues a bearer
// token.  Unverified accounts are refused before the password is looked
// at.
func (s *AccountService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return LoginResult{}, err
	}
	if password == "" {
		return LoginResult{}, invalid("password", "Password is required!")
	}

	a, err := s.Accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, ErrNotFound
		}
		return LoginResult{}, fmt.Errorf("load account: %w", err)
	}
	if !a.Verified {
		return LoginResult{}, ErrForbidden
	}
	if !utils.VerifyPassword(a.PasswordHash, password) {
		s.Log.Warn(ctx, "login rejected", "account_id", a.ID, "reason", "bad_password")
		return LoginResult{}, ErrUnauthorized
	}

	tok, err := s.Tokens.Issue(a)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	s.Log.Info(ctx, "login succeeded", "account_id", a.ID)
	return LoginResult{Account: a.WithoutOTP(), Token: tok}, nil
}

// EnsureAdmin creates a verified admin account unless the e-mail is
// already registered.  It is used once at startup to bootstrap access to
// the admin area.
func (s *AccountService) EnsureAdmin(ctx context.Context, in RegisterInput) (created bool, err error) {
	email := NormalizeEmail(in.Email)
	if _, err := s.Accounts.FindByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("load account: %w", err)
	}
	username, err := ValidateUsername(in.Username)
	if err != nil {
		return false, err
	}
	if err := ValidateEmail(email); err != nil {
		return false, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return false, err
	}
	hash, err := utils.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	a := model.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Verified:     true,
	}
	if err := s.Accounts.Create(ctx, &a); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}
	s.Log.Info(ctx, "admin account bootstrapped", "account_id", a.ID)
	return true, nil
}
