// Package mail is the outbound message collaborator: it accepts
// (destination, subject, body) and reports whether delivery worked.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUndelivered wraps every transport failure so callers can tell a
// delivery problem from other errors.
var ErrUndelivered = errors.New("message not delivered")

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender delivers a message or returns an error wrapping ErrUndelivered.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// OTPMessage renders the verification code e-mail.
func OTPMessage(to, code string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Your OTP Code",
		Body:    fmt.Sprintf("Your OTP code is: %s. It is valid for %s.", code, humanDuration(ttl)),
	}
}

// ResetMessage renders the password reset e-mail carrying the reset link.
func ResetMessage(to, link string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Reset your password",
		Body: strings.Join([]string{
			"You requested a password reset.",
			"",
			"Reset your password using this link:",
			link,
			"",
			fmt.Sprintf("The link is valid for %s and can be used once.", humanDuration(ttl)),
			"If you did not request this, you can ignore this email.",
		}, "\n"),
	}
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	case d >= time.Minute && d%time.Minute == 0:
		if m := int(d / time.Minute); m != 1 {
			return fmt.Sprintf("%d minutes", m)
		}
		return "1 minute"
	default:
		return d.String()
	}
}
