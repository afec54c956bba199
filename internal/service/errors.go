package service

import "errors"

// Failure taxonomy shared by the auth operations.  Handlers translate these
// into HTTP status codes; anything not listed here is an internal error.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("account not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("account not verified")
	ErrExpired      = errors.New("expired")
	ErrInvalidCode  = errors.New("invalid verification code")
	ErrInvalidToken = errors.New("invalid reset token")
	ErrDelivery     = errors.New("message could not be delivered")
)

// Conflict details; both match ErrConflict with errors.Is.
var (
	ErrEmailTaken    = &detailError{msg: "email already registered", kind: ErrConflict}
	ErrUsernameTaken = &detailError{msg: "username already taken", kind: ErrConflict}
)

type detailError struct {
	msg  string
	kind error
}

func (e *detailError) Error() string        { return e.msg }
func (e *detailError) Is(target error) bool { return target == e.kind }

// ValidationError carries a message that is safe to show to the client.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string        { return e.Msg }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }
