package config

import "time"

type TokenConfig interface {
	GetTokenIssuer() string
	GetTokenSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshTokenLength() int
}

type Token struct{}

var _ TokenConfig = Token{}

func (Token) GetTokenIssuer() string {
	return GetEnv("TOKEN_ISSUER", "http://localhost:8080")
}

func (Token) GetTokenSecret() string {
	return GetEnv("TOKEN_SECRET", "change-me-in-production")
}

func (Token) GetAccessTokenExpiry() time.Duration {
	return GetEnvDuration("ACCESS_TOKEN_EXPIRY", 1*time.Hour)
}

func (Token) GetRefreshTokenExpiry() time.Duration {
	return GetEnvDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour) // 7 days
}

func (Token) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}
