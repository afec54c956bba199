package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	for _, ok := range []string{"a@x.com", "first.last@mail.example.org"} {
		assert.NoError(t, ValidateEmail(ok), ok)
	}
	for _, bad := range []string{"", "a", "a@x", "@x.com", "Alice <a@x.com>", "a b@x.com"} {
		assert.ErrorIs(t, ValidateEmail(bad), ErrValidation, bad)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Secr3t!pass"))
	for _, bad := range []string{"S3!a", "alllower1!", "ALLUPPER1!", "NoDigits!!", "NoSymbol12", string(make([]byte, 73))} {
		assert.ErrorIs(t, ValidatePassword(bad), ErrValidation, bad)
	}
}

func TestValidateUsername(t *testing.T) {
	u, err := ValidateUsername("  alice ")
	assert.NoError(t, err)
	assert.Equal(t, "alice", u)

	_, err = ValidateUsername("   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@x.com", NormalizeEmail("  Alice@X.com "))
}
