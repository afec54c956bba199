package utils

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOTP_SixDigitsInRange(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := NewOTP()
		require.NoError(t, err)
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestHashOTP_TrimsWhitespace(t *testing.T) {
	assert.Equal(t, HashOTP("123456"), HashOTP(" 123456\n"))
	assert.NotEqual(t, HashOTP("123456"), HashOTP("123457"))
	assert.True(t, EqualHash(HashOTP("654321"), HashOTP("654321 ")))
	assert.False(t, EqualHash(HashOTP("654321"), HashOTP("654320")))
}

func TestNewResetToken_HashMatches(t *testing.T) {
	raw, hash, err := NewResetToken()
	require.NoError(t, err)
	assert.Len(t, raw, 43)
	assert.Equal(t, HashSecret(raw), hash)

	raw2, _, err := NewResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, raw, raw2)
}

func TestPassword_HashAndVerify(t *testing.T) {
	hash, err := HashPassword("Passw0rd!", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "Passw0rd!", hash)
	assert.True(t, VerifyPassword(hash, "Passw0rd!"))
	assert.False(t, VerifyPassword(hash, "passw0rd!"))
}
