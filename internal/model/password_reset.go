package model

import "time"

// PasswordResetToken models an entry in the `password_resets` table.  The
// raw token only ever exists in the reset e-mail; the table keeps its
// SHA-256 digest.
//
// Fields:
//
//	ID         – primary key identifier.
//	AccountID  – owner of the token.
//	TokenHash  – SHA-256 hex digest of the token value.
//	ExpiresAt  – expiration timestamp of the token.
//	ConsumedAt – when the token was redeemed (nil while still usable).
//	CreatedAt  – timestamp of creation.
type PasswordResetToken struct {
	ID         uint64
	AccountID  string
	TokenHash  string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// Consumed reports whether the token has already been redeemed.
func (t PasswordResetToken) Consumed() bool { return t.ConsumedAt != nil }

// ExpiredAt reports whether the token is past its validity at now.
func (t PasswordResetToken) ExpiredAt(now time.Time) bool { return now.After(t.ExpiresAt) }
