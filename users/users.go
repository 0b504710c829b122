package users

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	apperrors "github.com/jrsteele09/bogo-finds/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID           string         `json:"id,omitempty"`            // Unique identifier for the user
	Email        string         `json:"email,omitempty"`         // Normalised (lower case) email address
	Phone        string         `json:"phone,omitempty"`         // Verified phone, if the provider collected one
	PasswordHash string         `json:"-"`                       // bcrypt hash, empty for external (OIDC) identities - never serialize
	Metadata     map[string]any `json:"user_metadata,omitempty"` // Sign-up metadata such as name and phone
	Confirmed    bool           `json:"confirmed,omitempty"`     // Has the user confirmed their email
	External     bool           `json:"external,omitempty"`      // Created from an external identity provider
	CreatedAt    time.Time      `json:"created_at,omitempty"`
	LastSignIn   time.Time      `json:"last_sign_in,omitempty"`
}

// NormaliseEmail trims and lower-cases an email address.
func NormaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail performs basic email format validation.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 1 || at == len(email)-1 || !strings.Contains(email[at+1:], ".") || strings.ContainsAny(email, " \t") {
		return apperrors.Wrapf(apperrors.ErrInvalidEmail, "%q", email)
	}
	return nil
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long: %w", apperrors.ErrWeakPassword)
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter: %w", apperrors.ErrWeakPassword)
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter: %w", apperrors.ErrWeakPassword)
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number: %w", apperrors.ErrWeakPassword)
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword reports whether password matches the user's hash. External
// identities have no password and never match.
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return CheckPasswordHash(password, u.PasswordHash)
}
