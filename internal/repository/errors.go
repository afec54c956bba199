// Package repository holds the persistence side of the credential store:
// MySQL repositories for accounts and password reset tokens plus an
// in-memory implementation with the same guarantees for local runs and
// tests.
//
// The sentinel values below let the service layer classify storage
// outcomes without looking at driver errors.
package repository

import "errors"

// ErrNotFound is returned when no row matches the lookup.
var ErrNotFound = errors.New("not found")

// ErrEmailExists and ErrUsernameExists are raised by the unique indexes on
// accounts.email and accounts.username.  Both wrap ErrConflict.
var (
	ErrConflict       = errors.New("conflict")
	ErrEmailExists    = conflict("email already exists")
	ErrUsernameExists = conflict("username already exists")
)

// ErrStaleVersion means a conditional update lost the race: the row
// changed (or vanished) since it was read.
var ErrStaleVersion = errors.New("stale account version")

// ErrTokenConsumed and ErrTokenExpired describe why a reset token could not
// be redeemed.
var (
	ErrTokenConsumed = errors.New("reset token already consumed")
	ErrTokenExpired  = errors.New("reset token expired")
)

type conflictError struct{ msg string }

func conflict(msg string) error { return &conflictError{msg: msg} }

func (e *conflictError) Error() string        { return e.msg }
func (e *conflictError) Is(target error) bool { return target == ErrConflict }
