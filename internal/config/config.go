package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
	FetchConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetFrontendURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

// FetchConfig controls how the activity pipeline talks to the resource API
type FetchConfig interface {
	GetAPIBaseURL() string
	GetAPITimeout() time.Duration
	GetActivitiesPageSize() int
	GetDetailWorkers() int
	GetWeatherBaseURL() string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
	Fetch
}

func New() Config {
	return mainConfig{}
}
