package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy for the OAuth session lifecycle and the authenticated fetch pipeline
var (
	// ErrTokenExchangeFailed means the authorization code could not be exchanged for tokens.
	// The code is single use so the user has to authorise again.
	ErrTokenExchangeFailed = errors.New("token exchange failed")

	// ErrRefreshFailed means the refresh token was rejected or the refresh did not complete.
	// The session is torn down.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrUnauthorized means no valid credential is available for a resource call
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUpstream matches any *UpstreamError
	ErrUpstream = errors.New("upstream error")

	// ErrIncompleteCredential is returned when a provider response lacks one of the credential fields
	ErrIncompleteCredential = errors.New("incomplete credential")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrInvalidState    = errors.New("invalid state")
)

// ProviderError carries the token endpoint's response for diagnostics.
type ProviderError struct {
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider responded %d: %s", e.Status, e.Body)
}

// UpstreamError is a non-2xx, non-401 response from the resource API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream responded %d %s", e.Status, http.StatusText(e.Status))
}

// Is lets errors.Is(err, ErrUpstream) match any UpstreamError
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// UpstreamStatus returns the status carried by an UpstreamError in err's chain
func UpstreamStatus(err error) (int, bool) {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr.Status, true
	}
	return 0, false
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Mark joins a sentinel with its cause so both match errors.Is
func Mark(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
