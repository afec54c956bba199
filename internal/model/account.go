package model

import "time"

// Role is the authorization level embedded in bearer tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// Account represents a row of the `accounts` table.
//
// Fields:
//
//	ID           – opaque identifier (UUID), immutable.
//	Username     – display identifier, unique.
//	Email        – lower-cased e-mail, unique, immutable after creation.
//	PasswordHash – bcrypt hash; never leaves the service.
//	Role         – user or admin.
//	Verified     – flips to true once, through OTP validation.
//	OTPHash      – SHA-256 of the pending verification code, empty when none.
//	OTPExpiresAt – expiry of the pending code, nil when none.
//	Version      – optimistic concurrency counter bumped on every save.
//
// OTPHash and OTPExpiresAt are only populated by the *WithOTP lookups.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Verified     bool
	OTPHash      string
	OTPExpiresAt *time.Time
	Version      uint64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPendingOTP reports whether a verification code is outstanding.
func (a *Account) HasPendingOTP() bool {
	return a.OTPHash != "" && a.OTPExpiresAt != nil
}

// SetOTP records a new pending code, replacing any previous one.
func (a *Account) SetOTP(hash string, expiresAt time.Time) {
	exp := expiresAt.UTC()
	a.OTPHash = hash
	a.OTPExpiresAt = &exp
}

// MarkVerified flips the account to verified and clears the pending code.
func (a *Account) MarkVerified() {
	a.Verified = true
	a.ClearOTP()
}

func (a *Account) ClearOTP() {
	a.OTPHash = ""
	a.OTPExpiresAt = nil
}

// WithoutOTP returns a copy stripped of the pending code, the default read
// projection.
func (a Account) WithoutOTP() Account {
	a.ClearOTP()
	return a
}
