package config

import "time"

type OAuthConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetRedirectURI() string
	GetAuthURL() string
	GetTokenURL() string
	GetScopes() []string
	GetTokenTimeout() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetClientID() string {
	return GetEnv("STRAVA_CLIENT_ID", "")
}

func (OAuth) GetClientSecret() string {
	return GetEnv("STRAVA_CLIENT_SECRET", "")
}

func (OAuth) GetRedirectURI() string {
	return GetEnv("STRAVA_REDIRECT_URI", "http://localhost:5000/callback")
}

func (OAuth) GetAuthURL() string {
	return GetEnv("STRAVA_AUTH_URL", "https://www.strava.com/oauth/authorize")
}

func (OAuth) GetTokenURL() string {
	return GetEnv("STRAVA_TOKEN_URL", "https://www.strava.com/oauth/token")
}

// GetScopes returns the scopes requested during authorisation. Strava expects them comma separated.
func (OAuth) GetScopes() []string {
	return splitAndTrim(GetEnv("STRAVA_SCOPES", "activity:read_all,profile:read_all"))
}

// GetTokenTimeout bounds a single code exchange or refresh
func (OAuth) GetTokenTimeout() time.Duration {
	return GetDurationEnv("TOKEN_TIMEOUT", 10*time.Second)
}
