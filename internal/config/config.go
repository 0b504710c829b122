package config

type Config interface {
	EnvConfig
	CorsConfig
	TokenConfig
	SecurityConfig
	CatalogConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetDemoEmail() string
	GetDemoPassword() string
	GetDemoName() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Token
	Security
	Catalog
}

func New() Config {
	return mainConfig{}
}
