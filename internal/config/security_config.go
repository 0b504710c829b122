package config

type SecurityConfig interface {
	GetRequireEmailConfirmation() bool
	GetOIDCIssuer() string
	GetOIDCClientID() string
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetRequireEmailConfirmation() bool {
	return GetEnvBool("REQUIRE_EMAIL_CONFIRMATION", false)
}

// GetOIDCIssuer enables ID token sign-in when set together with GetOIDCClientID.
func (Security) GetOIDCIssuer() string {
	return GetEnv("OIDC_ISSUER", "")
}

func (Security) GetOIDCClientID() string {
	return GetEnv("OIDC_CLIENT_ID", "")
}
