package config

type Config interface {
	EnvConfig
	ClientConfig
	IdentityConfig
	StoreConfig
	APIServerConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetAppVersion() string
	GetEnv() string
	IsProduction() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Client
	Identity
	Store
	APIServer
	Cors
}

func New() Config {
	return mainConfig{}
}
