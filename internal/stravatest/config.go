package stravatest

import (
	"time"

	"github.com/jrsteele09/go-strava-proxy/internal/config"
)

type OAuthConfig struct {
	AuthURL  string
	TokenURL string
}

var _ config.OAuthConfig = OAuthConfig{}

func (c OAuthConfig) GetClientID() string            { return ClientID }
func (c OAuthConfig) GetClientSecret() string        { return ClientSecret }
func (c OAuthConfig) GetRedirectURI() string         { return RedirectURI }
func (c OAuthConfig) GetAuthURL() string             { return c.AuthURL }
func (c OAuthConfig) GetTokenURL() string            { return c.TokenURL }
func (c OAuthConfig) GetScopes() []string            { return []string{"activity:read_all", "profile:read_all"} }
func (c OAuthConfig) GetTokenTimeout() time.Duration { return 2 * time.Second }

type FetchConfig struct {
	APIBaseURL string
}

var _ config.FetchConfig = FetchConfig{}

func (c FetchConfig) GetAPIBaseURL() string        { return c.APIBaseURL }
func (c FetchConfig) GetAPITimeout() time.Duration { return 2 * time.Second }
func (c FetchConfig) GetActivitiesPageSize() int   { return 9 }
func (c FetchConfig) GetDetailWorkers() int        { return 4 }
func (c FetchConfig) GetWeatherBaseURL() string    { return "" }
