package auth

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-strava-proxy/internal/config"
	apperrors "github.com/jrsteele09/go-strava-proxy/internal/errors"
)

const (
	minStateLength         = 8
	minSessionSecretLength = 32
)

// ValidateConfig checks the OAuth settings the service cannot work without
func ValidateConfig(cfg config.OAuthConfig) error {
	if strings.TrimSpace(cfg.GetClientID()) == "" {
		return fmt.Errorf("client id is required")
	}
	if strings.TrimSpace(cfg.GetClientSecret()) == "" {
		return fmt.Errorf("client secret is required")
	}
	if err := ValidateRedirectURI(cfg.GetRedirectURI()); err != nil {
		return err
	}
	for _, endpoint := range []string{cfg.GetAuthURL(), cfg.GetTokenURL()} {
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return fmt.Errorf("invalid provider endpoint %q: %w", endpoint, err)
		}
	}
	return ValidateScopes(cfg.GetScopes())
}

// ValidateSessionSecret rejects a missing or guessable cookie secret. Outside DEV the
// built-in dev secret is refused and the secret must be at least 32 bytes.
func ValidateSessionSecret(env, secret string) error {
	if secret == "" {
		return fmt.Errorf("session secret is required")
	}
	if env == config.DevEnv {
		return nil
	}
	if secret == config.DevSessionSecret {
		return fmt.Errorf("SESSION_SECRET must be set outside %s", config.DevEnv)
	}
	if len(secret) < minSessionSecretLength {
		return fmt.Errorf("session secret should be at least %d bytes", minSessionSecretLength)
	}
	return nil
}

// ValidateScopes validates individual scope strings. They are joined with commas on the wire.
func ValidateScopes(scopes []string) error {
	if len(scopes) == 0 {
		return fmt.Errorf("at least one scope is required")
	}
	for _, s := range scopes {
		if s == "" || s != strings.TrimSpace(s) {
			return fmt.Errorf("scope %q must not be empty or padded", s)
		}
		if strings.ContainsAny(s, ", \n\r\t") {
			return fmt.Errorf("scope %q contains invalid characters", s)
		}
	}
	return nil
}

// ValidateRedirectURI validates redirect URI format
func ValidateRedirectURI(uri string) error {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return fmt.Errorf("redirect_uri is required")
	}

	// Must start with http:// or https://
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		return fmt.Errorf("redirect_uri must use http or https scheme")
	}

	if strings.Contains(uri, "#") {
		return fmt.Errorf("redirect_uri must not contain fragments")
	}

	return nil
}

// ValidateState validates the state echoed back on the callback. It is always required.
func ValidateState(state string) error {
	if state == "" {
		return fmt.Errorf("%w: state parameter is required", apperrors.ErrInvalidState)
	}

	if len(state) < minStateLength {
		return fmt.Errorf("%w: state parameter should be at least %d characters", apperrors.ErrInvalidState, minStateLength)
	}

	if strings.TrimSpace(state) != state {
		return fmt.Errorf("%w: state parameter must not contain leading/trailing whitespace", apperrors.ErrInvalidState)
	}

	return nil
}
