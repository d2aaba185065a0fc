package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Codec errors
	ErrInvalidHashLength        = errors.New("password hash must be 32 bytes")
	ErrUnsupportedAddressFamily = errors.New("unsupported address family")
	ErrFormat                   = errors.New("malformed account file")
	ErrUnknownFormat            = errors.New("unknown account file format")

	// Account errors
	ErrInvalidName        = errors.New("invalid account name")
	ErrAccountNotFound    = errors.New("account not found")
	ErrDuplicateUsername  = errors.New("an account with this username already exists")
	ErrCollisionExhausted = errors.New("no unique display name available")
	ErrDisplayNameTaken   = errors.New("display name is already in use")
	ErrAccountDetached    = errors.New("account is not bound to a file")
	ErrForeignPath        = errors.New("path is outside the account directory")
)

// IOError reports a failed directory operation on one account file
type IOError struct {
	Op   string
	Name string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
