package errors

import (
	"errors"
	"fmt"
)

// Common error types for the deals application
var (
	// Credential errors, surfaced to the user as form messages
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrEmailNotConfirmed     = errors.New("email not confirmed")
	ErrUserAlreadyRegistered = errors.New("user already registered")
	ErrWeakPassword          = errors.New("weak password")
	ErrInvalidEmail          = errors.New("invalid email")
	ErrInvalidRecoveryCode   = errors.New("invalid recovery code")

	// Collaborator errors
	ErrProviderUnavailable = errors.New("auth provider unavailable")
	ErrNotConfigured       = errors.New("not configured")

	// Session and token errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrInvalidToken    = errors.New("invalid token")
	ErrUserNotFound    = errors.New("user not found")

	// Store lifecycle errors
	ErrStoreDisposed     = errors.New("store disposed")
	ErrAlreadySubscribed = errors.New("already subscribed")

	// Catalog errors
	ErrMalformedValidUntil = errors.New("malformed validUntil")
	ErrMalformedSavings    = errors.New("malformed savings")
	ErrDuplicateDeal       = errors.New("duplicate deal id")
	ErrDealNotFound        = errors.New("deal not found")
	ErrUnknownCategory     = errors.New("unknown category")
	ErrUnknownSortMode     = errors.New("unknown sort mode")
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
