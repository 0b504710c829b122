package token

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/bogo-finds/internal/config"
	apperrors "github.com/jrsteele09/bogo-finds/internal/errors"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const TokenType = "Bearer"

// Claims carried by a session access token.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type Manager struct {
	signer             Signer
	issuer             string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	refreshTokenLength int
	revokedCache       RevokedTokenCache
	nowFunc            func() time.Time
}

type ManagerOption func(*Manager)

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithSigner(signer Signer) ManagerOption {
	return func(m *Manager) {
		m.signer = signer
	}
}

func WithRevokedTokenCache(cache RevokedTokenCache) ManagerOption {
	return func(m *Manager) {
		m.revokedCache = cache
	}
}

// New builds a Manager signing with the configured HMAC secret unless WithSigner overrides it.
func New(cfg config.TokenConfig, options ...ManagerOption) (*Manager, error) {
	m := &Manager{
		issuer:             cfg.GetTokenIssuer(),
		accessTokenExpiry:  cfg.GetAccessTokenExpiry(),
		refreshTokenExpiry: cfg.GetRefreshTokenExpiry(),
		refreshTokenLength: cfg.GetRefreshTokenLength(),
		revokedCache:       NewInMemoryRevokedTokenCache(),
	}

	for _, opt := range options {
		opt(m)
	}

	if m.signer == nil {
		if strings.TrimSpace(cfg.GetTokenSecret()) == "" {
			return nil, errors.Wrap(apperrors.ErrNotConfigured, "[token.New] token secret is empty")
		}
		m.signer = NewHMACSigner(cfg.GetTokenSecret())
	}
	if m.accessTokenExpiry <= 0 {
		m.accessTokenExpiry = time.Hour
	}
	if m.refreshTokenExpiry <= 0 {
		m.refreshTokenExpiry = 7 * 24 * time.Hour
	}
	if m.refreshTokenLength <= 0 {
		m.refreshTokenLength = 32
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m, nil
}

// Issue mints a signed access token and an opaque refresh token for the user.
func (m *Manager) Issue(userID, email string) (*oauth2.Token, error) {
	now := m.nowFunc()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenExpiry)),
			ID:        uuid.New().String(),
		},
	}

	accessToken, err := m.signer.Sign(claims)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Issue] Sign")
	}

	refreshToken, err := m.NewRefreshToken()
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Issue] NewRefreshToken")
	}

	return &oauth2.Token{
		AccessToken:  accessToken,
		TokenType:    TokenType,
		RefreshToken: refreshToken,
		Expiry:       claims.ExpiresAt.Time,
	}, nil
}

// Parse verifies signature, issuer and expiry of a raw access token.
// Expired tokens yield ErrSessionExpired, anything else unusable yields ErrInvalidToken.
func (m *Manager) Parse(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "[Manager.Parse] empty token")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(rawToken, claims, m.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.nowFunc),
		jwt.WithExpirationRequired(),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, errors.Wrap(apperrors.ErrSessionExpired, "[Manager.Parse] access token expired")
	}
	if err != nil {
		return nil, errors.Wrapf(apperrors.ErrInvalidToken, "[Manager.Parse] %v", err)
	}
	if claims.ID != "" && m.revokedCache.IsRevoked(claims.ID) {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "[Manager.Parse] token revoked")
	}
	return claims, nil
}

// Revoke blacklists a still-valid access token until its expiry. Already expired
// tokens need no revocation.
func (m *Manager) Revoke(rawToken string) error {
	claims, err := m.Parse(rawToken)
	if errors.Is(err, apperrors.ErrSessionExpired) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "[Manager.Revoke]")
	}
	if claims.ID == "" {
		return errors.Wrap(apperrors.ErrInvalidToken, "[Manager.Revoke] token missing jti claim")
	}
	m.revokedCache.Add(claims.ID, claims.ExpiresAt.Time)
	return nil
}

func (m *Manager) CleanupRevokedTokens() {
	m.revokedCache.Cleanup(m.nowFunc())
}

// NewRefreshToken returns a random hex encoded refresh token.
func (m *Manager) NewRefreshToken() (string, error) {
	tokenBytes := make([]byte, m.refreshTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "[Manager.NewRefreshToken] rand.Read")
	}
	return hex.EncodeToString(tokenBytes), nil
}

// AccessExpired reports whether the access token of tok is missing or past its expiry.
func (m *Manager) AccessExpired(tok *oauth2.Token) bool {
	if tok == nil || tok.AccessToken == "" {
		return true
	}
	if tok.Expiry.IsZero() {
		return false
	}
	return !m.nowFunc().Before(tok.Expiry)
}

// RefreshExpiry is the instant a refresh token issued at issuedAt stops being usable.
func (m *Manager) RefreshExpiry(issuedAt time.Time) time.Time {
	return issuedAt.Add(m.refreshTokenExpiry)
}

func (m *Manager) Now() time.Time {
	return m.nowFunc()
}
