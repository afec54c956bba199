package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// OTP codes are six digits: 100000..999999.
const (
	otpLow  = 100000
	otpHigh = 999999
)

// NewOTP draws a six digit code uniformly from 100000..999999.
func NewOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpHigh-otpLow+1))
	if err != nil {
		return "", fmt.Errorf("read otp: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+otpLow), nil
}

// HashOTP returns the stored representation of a code.  Surrounding
// whitespace is ignored so that "123456 " and "123456" hash alike.
func HashOTP(code string) string {
	return HashSecret(strings.TrimSpace(code))
}

// NewResetToken returns a URL-safe random token and its SHA-256 digest.
func NewResetToken() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("read token: %w", err)
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, HashSecret(raw), nil
}

// HashSecret returns the SHA-256 hash of raw as a hex string.
func HashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// EqualHash compares two hex digests in constant time.
func EqualHash(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
