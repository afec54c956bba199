package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccount_OTPLifecycle(t *testing.T) {
	a := Account{ID: "a1"}
	assert.False(t, a.HasPendingOTP())

	exp := time.Date(2026, 1, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	a.SetOTP("hash", exp)
	assert.True(t, a.HasPendingOTP())
	assert.Equal(t, time.UTC, a.OTPExpiresAt.Location())

	stripped := a.WithoutOTP()
	assert.False(t, stripped.HasPendingOTP())
	assert.True(t, a.HasPendingOTP(), "WithoutOTP must not touch the receiver")

	a.MarkVerified()
	assert.True(t, a.Verified)
	assert.False(t, a.HasPendingOTP())
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("owner").Valid())
}

func TestPasswordResetToken_State(t *testing.T) {
	now := time.Now()
	tok := PasswordResetToken{ExpiresAt: now}
	assert.False(t, tok.Consumed())
	assert.False(t, tok.ExpiredAt(now))
	assert.True(t, tok.ExpiredAt(now.Add(time.Second)))

	tok.ConsumedAt = &now
	assert.True(t, tok.Consumed())
}
