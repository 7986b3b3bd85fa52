package config

type Config interface {
	EnvConfig
	OAuthConfig
	DatabaseConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
}

type DatabaseConfig interface {
	GetDBPath() string
}

type mainConfig struct {
	EnvVars
	OAuth
	Database
}

func New() Config {
	return mainConfig{}
}
