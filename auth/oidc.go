package auth

import (
	"context"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	apperrors "github.com/jrsteele09/bogo-finds/internal/errors"
	"github.com/jrsteele09/bogo-finds/sessions"
	"github.com/jrsteele09/bogo-finds/users"
	"github.com/pkg/errors"
)

// idTokenClaims are the standard OIDC claims read from an external ID token.
type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
	Name          string `json:"name"`
	PhoneNumber   string `json:"phone_number"`
}

// NewIDTokenVerifier discovers issuer's keys and returns a verifier for tokens minted for clientID.
func NewIDTokenVerifier(ctx context.Context, issuer, clientID string) (*oidc.IDTokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, errors.Wrapf(err, "[NewIDTokenVerifier] discovery for %s", issuer)
	}
	return provider.Verifier(&oidc.Config{ClientID: clientID}), nil
}

// SignInWithIDToken signs in with an ID token issued by the configured OIDC provider.
// Unknown emails get an external, already confirmed account.
func (s *Service) SignInWithIDToken(ctx context.Context, rawIDToken string) error {
	if s.verifier == nil {
		return errors.Wrap(apperrors.ErrNotConfigured, "[Service.SignInWithIDToken] no ID token verifier")
	}

	idToken, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return errors.Wrapf(apperrors.ErrInvalidCredentials, "[Service.SignInWithIDToken] %v", err)
	}

	var claims idTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return errors.Wrapf(apperrors.ErrInvalidCredentials, "[Service.SignInWithIDToken] claims: %v", err)
	}
	if strings.TrimSpace(claims.Email) == "" {
		return errors.Wrap(apperrors.ErrInvalidCredentials, "[Service.SignInWithIDToken] token has no email claim")
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return errors.Wrap(apperrors.ErrEmailNotConfirmed, "[Service.SignInWithIDToken]")
	}

	user, err := s.repos.Users.GetByEmail(claims.Email)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		user = &users.User{
			Email:     claims.Email,
			Phone:     claims.PhoneNumber,
			Metadata:  map[string]any{"provider_subject": idToken.Subject},
			Confirmed: true,
			External:  true,
			CreatedAt: s.nowTime(),
		}
		if claims.Name != "" {
			user.Metadata["name"] = claims.Name
		}
	} else if err != nil {
		return errors.Wrap(err, "[Service.SignInWithIDToken] GetByEmail")
	}

	if user.Phone == "" && claims.PhoneNumber != "" {
		user.Phone = claims.PhoneNumber
	}
	user.Confirmed = true
	return s.signIn(user, sessions.EventSignedIn)
}
