package config

import "time"

type SecurityConfig interface {
	GetSessionSecret() string
	GetMaxSessionAge() time.Duration
}

// DevSessionSecret is the cookie secret used when SESSION_SECRET is unset. It is public
// and only accepted in DEV.
const DevSessionSecret = "dev-secret-key"

type Security struct{}

var _ SecurityConfig = Security{}

// GetSessionSecret signs the session cookie
func (Security) GetSessionSecret() string {
	return GetEnv("SESSION_SECRET", DevSessionSecret)
}

func (Security) GetMaxSessionAge() time.Duration {
	return GetDurationEnv("SESSION_MAX_AGE", 24*time.Hour)
}
