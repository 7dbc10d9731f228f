package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")
)

// Authentication failures. Each wraps one of the sentinels above so callers
// can match on either the specific reason or the category.
var (
	ErrInvalidCredentials    = fmt.Errorf("invalid username or password: %w", ErrUnauthorized)
	ErrAccountDeleted        = fmt.Errorf("account does not exist: %w", ErrUnauthorized)
	ErrPasswordLoginDisabled = fmt.Errorf("password login disabled for external account: %w", ErrUnauthorized)
	ErrMissingCredentials    = fmt.Errorf("username and password are required: %w", ErrBadRequest)
	ErrMissingEmail          = fmt.Errorf("identity provider did not return a verified email: %w", ErrBadRequest)
	ErrInvalidRole           = fmt.Errorf("unknown role: %w", ErrBadRequest)
	ErrPasswordTooLong       = fmt.Errorf("password must be at most 72 bytes: %w", ErrBadRequest)
	ErrUsernameTaken         = fmt.Errorf("username already exists: %w", ErrConflict)
	ErrEmailTaken            = fmt.Errorf("email already registered: %w", ErrConflict)
)
