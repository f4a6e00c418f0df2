package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	apperrors "github.com/jrsteele09/go-strava-proxy/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestUpstreamError(t *testing.T) {
	err := fmt.Errorf("[provider Call] GET /activities: %w", &apperrors.UpstreamError{Status: http.StatusTooManyRequests})

	t.Run("matches sentinel", func(t *testing.T) {
		require.ErrorIs(t, err, apperrors.ErrUpstream)
		require.NotErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("status preserved", func(t *testing.T) {
		status, ok := apperrors.UpstreamStatus(err)
		require.True(t, ok)
		require.Equal(t, http.StatusTooManyRequests, status)
	})

	t.Run("no status on other errors", func(t *testing.T) {
		_, ok := apperrors.UpstreamStatus(apperrors.ErrUnauthorized)
		require.False(t, ok)
	})
}

func TestMark(t *testing.T) {
	cause := &apperrors.ProviderError{Status: http.StatusBadRequest, Body: `{"message":"Bad Request"}`}
	err := apperrors.Mark(apperrors.ErrTokenExchangeFailed, cause)

	require.ErrorIs(t, err, apperrors.ErrTokenExchangeFailed)

	var providerErr *apperrors.ProviderError
	require.ErrorAs(t, err, &providerErr)
	require.Equal(t, http.StatusBadRequest, providerErr.Status)
	require.Contains(t, err.Error(), "Bad Request")

	require.Equal(t, apperrors.ErrRefreshFailed, apperrors.Mark(apperrors.ErrRefreshFailed, nil))
}

func TestWrapf(t *testing.T) {
	require.NoError(t, apperrors.Wrapf(nil, "noop"))

	err := apperrors.Wrapf(apperrors.ErrSessionNotFound, "[sessions Get] id %s", "abc")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	require.Equal(t, "[sessions Get] id abc: session not found", err.Error())
}
