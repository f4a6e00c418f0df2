package token

import (
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-strava-proxy/internal/errors"
)

// Credential is the token set issued by the provider for one session.
// A Credential is either absent (nil) or has all three fields set.
type Credential struct {
	// AccessToken is the short-lived bearer token sent on API calls.
	AccessToken string

	// RefreshToken obtains a new Credential without user interaction.
	// The provider may rotate it on every refresh.
	RefreshToken string

	// ExpiresAt is when the access token stops being accepted.
	// Strava reports this as unix seconds in the expires_at field.
	ExpiresAt time.Time
}

// Validate rejects partially populated credentials
func (c Credential) Validate() error {
	switch {
	case c.AccessToken == "":
		return fmt.Errorf("%w: missing access token", apperrors.ErrIncompleteCredential)
	case c.RefreshToken == "":
		return fmt.Errorf("%w: missing refresh token", apperrors.ErrIncompleteCredential)
	case c.ExpiresAt.IsZero():
		return fmt.Errorf("%w: missing expiry", apperrors.ErrIncompleteCredential)
	}
	return nil
}

// IsExpired is true once now reaches ExpiresAt
func (c Credential) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

func (c Credential) equal(other Credential) bool {
	return c.AccessToken == other.AccessToken &&
		c.RefreshToken == other.RefreshToken &&
		c.ExpiresAt.Equal(other.ExpiresAt)
}
