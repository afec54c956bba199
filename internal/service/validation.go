package service

import (
	"context"
	"errors"
	"net"
	"net/mail"
	"strings"
	"unicode"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt only looks at the first 72 bytes
	maxUsernameLen = 64
)

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// ValidateEmail checks the shape of an already normalized address.
func ValidateEmail(email string) error {
	if email == "" {
		return invalid("email", "Email is required!")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return invalid("email", "Invalid email format!")
	}
	at := strings.LastIndexByte(email, '@')
	if at < 1 || !strings.Contains(email[at+1:], ".") {
		return invalid("email", "Invalid email format!")
	}
	return nil
}

// ValidatePassword enforces the storefront's complexity rule: 8 to 72
// bytes with at least one lower-case letter, upper-case letter, digit and
// symbol.
func ValidatePassword(pw string) error {
	if len(pw) < minPasswordLen || len(pw) > maxPasswordLen {
		return invalid("password", "Password must be between 8 and 72 characters long!")
	}
	var lower, upper, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	if !lower || !upper || !digit || !symbol {
		return invalid("password", "Password must contain an upper-case letter, a lower-case letter, a number and a symbol!")
	}
	return nil
}

// ValidateUsername trims and checks the display name.
func ValidateUsername(username string) (string, error) {
	u := strings.TrimSpace(username)
	if u == "" {
		return "", invalid("userName", "User name is required!")
	}
	if len(u) > maxUsernameLen {
		return "", invalid("userName", "User name is too long!")
	}
	return u, nil
}

// DomainChecker answers whether an e-mail domain can receive mail.
type DomainChecker interface {
	AcceptsMail(ctx context.Context, domain string) (bool, error)
}

// MXChecker looks up MX records through DNS.
type MXChecker struct {
	Resolver *net.Resolver
}

func (c MXChecker) AcceptsMail(ctx context.Context, domain string) (bool, error) {
	r := c.Resolver
	if r == nil {
		r = net.DefaultResolver
	}
	records, err := r.LookupMX(ctx, domain)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			return false, nil
		}
		return false, err
	}
	return len(records) > 0, nil
}

// AllowAllDomains skips the DNS lookup.
type AllowAllDomains struct{}

func (AllowAllDomains) AcceptsMail(context.Context, string) (bool, error) { return true, nil }

func emailDomain(email string) string {
	return email[strings.LastIndexByte(email, '@')+1:]
}
