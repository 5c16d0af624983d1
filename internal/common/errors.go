// Package common defines shared constants, user-facing messages and sentinel
// errors used across AccountKeeper layers. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	// ErrorConflict is returned by conditional updates whose expected value
	// no longer matches the stored one.
	ErrorConflict = errors.New("conflict")

	// Service-level errors.
	ErrorInternal      = errors.New("internal error")
	ErrAlreadyVerified = errors.New("email already verified")
	ErrEmailTaken      = errors.New("email already exists")
	ErrUserNotFound    = errors.New("user not found")
	ErrTokenConsumed   = errors.New("token already consumed")
)
