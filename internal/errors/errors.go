package errors

import (
	"errors"
	"fmt"
)

// Common error types for the restaurant portal
var (
	// Identity provider errors
	ErrNotInitialized   = errors.New("identity provider not initialized")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidState     = errors.New("invalid or unknown login state")
	ErrLoginTimeout     = errors.New("timed out waiting for login callback")
	ErrNonceMismatch    = errors.New("id token nonce mismatch")
	ErrMissingIDToken   = errors.New("token response has no id_token")

	// Token errors
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrRefreshFailed  = errors.New("token refresh failed")
	ErrSessionExpired = errors.New("session expired, please log in again")
	ErrSessionChanged = errors.New("session changed while tokens were refreshed")

	// Request errors
	ErrTransport = errors.New("request transport failure")
	ErrDecode    = errors.New("response decode failure")

	// Input errors
	ErrValidation = errors.New("validation failed")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors, nil entries are discarded
func Join(errs ...error) error {
	return errors.Join(errs...)
}
