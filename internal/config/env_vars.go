package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	envVar         = "ENV"
	logLevelVar    = "LOG_LEVEL"
	frontendURLVar = "FRONTEND_URL"
)

// DevEnv enables console logging, route listing and the dev session secret
const DevEnv = "DEV"

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "5000")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Strava Proxy")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envVar, "PROD")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

// GetFrontendURL is where the browser is sent after the OAuth callback completes
func (EnvVars) GetFrontendURL() string {
	return GetEnv(frontendURLVar, "http://localhost:3000")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetIntEnv(envVar string, defaultValue int) int {
	if parsed, err := strconv.Atoi(os.Getenv(envVar)); err == nil {
		return parsed
	}
	return defaultValue
}

func GetDurationEnv(envVar string, defaultValue time.Duration) time.Duration {
	if parsed, err := time.ParseDuration(os.Getenv(envVar)); err == nil {
		return parsed
	}
	return defaultValue
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
