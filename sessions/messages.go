package sessions

import (
	apperrors "github.com/jrsteele09/bogo-finds/internal/errors"
)

const genericFailureMessage = "Something went wrong. Please try again."

var userMessages = []struct {
	err     error
	message string
}{
	{apperrors.ErrInvalidCredentials, "Invalid email or password"},
	{apperrors.ErrEmailNotConfirmed, "Please confirm your email before signing in"},
	{apperrors.ErrUserAlreadyRegistered, "An account with this email already exists"},
	{apperrors.ErrWeakPassword, "Password must be at least 8 characters with upper and lower case letters and a number"},
	{apperrors.ErrInvalidEmail, "Please enter a valid email address"},
	{apperrors.ErrInvalidRecoveryCode, "This reset link is invalid or has expired"},
	{apperrors.ErrProviderUnavailable, "We couldn't reach the sign-in service. Please try again."},
	{apperrors.ErrStoreDisposed, genericFailureMessage},
}

// UserMessage turns an auth action error into text for the form. nil gives "".
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range userMessages {
		if apperrors.Is(err, m.err) {
			return m.message
		}
	}
	return genericFailureMessage
}

// IsCredentialError reports whether the user can fix err by editing the form.
func IsCredentialError(err error) bool {
	for _, target := range []error{
		apperrors.ErrInvalidCredentials,
		apperrors.ErrEmailNotConfirmed,
		apperrors.ErrUserAlreadyRegistered,
		apperrors.ErrWeakPassword,
		apperrors.ErrInvalidEmail,
		apperrors.ErrInvalidRecoveryCode,
	} {
		if apperrors.Is(err, target) {
			return true
		}
	}
	return false
}
