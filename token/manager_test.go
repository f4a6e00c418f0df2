package token_test

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-strava-proxy/internal/errors"
	"github.com/jrsteele09/go-strava-proxy/token"
	"github.com/stretchr/testify/require"
)

func TestManager_AuthCodeURL(t *testing.T) {
	f := newFakeTokenEndpoint(t)
	m := token.NewManager(f.config())

	u, err := url.Parse(m.AuthCodeURL("state-123"))
	require.NoError(t, err)
	q := u.Query()

	require.Equal(t, "www.strava.com", u.Host)
	require.Equal(t, testClientID, q.Get("client_id"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, testRedirectURI, q.Get("redirect_uri"))
	require.Equal(t, "force", q.Get("approval_prompt"))
	require.Equal(t, "activity:read_all,profile:read_all", q.Get("scope"))
	require.Equal(t, "state-123", q.Get("state"))
}

func TestManager_ExchangeCode(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFakeTokenEndpoint(t)
		m := token.NewManager(f.config())

		cred, err := m.ExchangeCode(context.Background(), validCode)
		require.NoError(t, err)
		require.Equal(t, "access-1", cred.AccessToken)
		require.Equal(t, validRefresh, cred.RefreshToken)
		require.Equal(t, f.expiresAt, cred.ExpiresAt.Unix())

		form := f.lastForm()
		require.Equal(t, "authorization_code", form.Get("grant_type"))
		require.Equal(t, validCode, form.Get("code"))
		require.Equal(t, testClientID, form.Get("client_id"))
		require.Equal(t, testClientSecret, form.Get("client_secret"))
	})

	t.Run("bad code", func(t *testing.T) {
		f := newFakeTokenEndpoint(t)
		m := token.NewManager(f.config())

		cred, err := m.ExchangeCode(context.Background(), "bad-code")
		require.Nil(t, cred)
		require.ErrorIs(t, err, apperrors.ErrTokenExchangeFailed)

		var providerErr *apperrors.ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.Equal(t, http.StatusBadRequest, providerErr.Status)
		require.Contains(t, providerErr.Body, "Bad Request")
		require.EqualValues(t, 1, f.exchanges.Load(), "exchange is not retried")
	})

	t.Run("empty code never hits the network", func(t *testing.T) {
		f := newFakeTokenEndpoint(t)
		m := token.NewManager(f.config())

		_, err := m.ExchangeCode(context.Background(), "")
		require.ErrorIs(t, err, apperrors.ErrTokenExchangeFailed)
		require.Nil(t, f.lastForm())
	})

	t.Run("expires_in fallback", func(t *testing.T) {
		f := newFakeTokenEndpoint(t)
		f.omitExpiry = true
		m := token.NewManager(f.config())

		before := time.Now()
		cred, err := m.ExchangeCode(context.Background(), validCode)
		require.NoError(t, err)
		require.WithinDuration(t, before.Add(6*time.Hour), cred.ExpiresAt, 5*time.Second)
	})

	t.Run("timeout is an exchange failure", func(t *testing.T) {
		f := newFakeTokenEndpoint(t)
		f.delay = 300 * time.Millisecond
		m := token.NewManager(f.config(), token.WithTimeout(50*time.Millisecond))

		_, err := m.ExchangeCode(context.Background(), validCode)
		require.ErrorIs(t, err, apperrors.ErrTokenExchangeFailed)
	})
}

func TestManager_Refresh(t *testing.T) {
	t.Run("adopts rotated refresh token", func(t *testing.T) {
		f := newFakeTokenEndpoint(t)
		m := token.NewManager(f.config())

		old := testCredential(time.Now().Add(-time.Minute))
		old.RefreshToken = validRefresh

		fresh, err := m.Refresh(context.Background(), &old)
		require.NoError(t, err)
		require.Equal(t, "access-2", fresh.AccessToken)
		require.Equal(t, rotatedRefresh, fresh.RefreshToken)
		require.True(t, fresh.ExpiresAt.After(time.Now()))

		form := f.lastForm()
		require.Equal(t, "refresh_token", form.Get("grant_type"))
		require.Equal(t, validRefresh, form.Get("refresh_token"))
		require.Equal(t, testClientSecret, form.Get("client_secret"))
	})

	t.Run("revoked refresh token", func(t *testing.T) {
		f := newFakeTokenEndpoint(t)
		m := token.NewManager(f.config())

		old := testCredential(time.Now().Add(-time.Minute))
		old.RefreshToken = "revoked"

		_, err := m.Refresh(context.Background(), &old)
		require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
	})
}

func TestManager_EnsureValid(t *testing.T) {
	now := time.Now()

	t.Run("empty store is unauthorized without network", func(t *testing.T) {
		f := newFakeTokenEndpoint(t)
		m := token.NewManager(f.config())

		_, err := m.EnsureValid(context.Background(), token.NewStore("s"), now)
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		require.Nil(t, f.lastForm())
	})

	t.Run("valid credential is not refreshed", func(t *testing.T) {
		f := newFakeTokenEndpoint(t)
		m := token.NewManager(f.config())
		store := token.NewStore("s")
		require.NoError(t, store.Set(testCredential(now.Add(time.Minute))))

		cred, err := m.EnsureValid(context.Background(), store, now)
		require.NoError(t, err)
		require.Equal(t, "access", cred.AccessToken)
		require.EqualValues(t, 0, f.refreshes.Load())
	})

	t.Run("expired credential is refreshed once", func(t *testing.T) {
		f := newFakeTokenEndpoint(t)
		m := token.NewManager(f.config())
		store := token.NewStore("s")
		expired := testCredential(now.Add(-time.Hour))
		expired.RefreshToken = validRefresh
		require.NoError(t, store.Set(expired))

		cred, err := m.EnsureValid(context.Background(), store, now)
		require.NoError(t, err)
		require.Equal(t, "access-2", cred.AccessToken)
		require.True(t, cred.ExpiresAt.After(now))
		require.EqualValues(t, 1, f.refreshes.Load())

		stored := store.Get()
		require.Equal(t, *cred, *stored)
		require.Equal(t, rotatedRefresh, stored.RefreshToken)
	})

	t.Run("credential expiring exactly now is refreshed", func(t *testing.T) {
		f := newFakeTokenEndpoint(t)
		m := token.NewManager(f.config())
		store := token.NewStore("s")
		boundary := testCredential(now)
		boundary.RefreshToken = validRefresh
		require.NoError(t, store.Set(boundary))

		_, err := m.EnsureValid(context.Background(), store, now)
		require.NoError(t, err)
		require.EqualValues(t, 1, f.refreshes.Load())
	})

	t.Run("failed refresh clears the store", func(t *testing.T) {
		f := newFakeTokenEndpoint(t)
		m := token.NewManager(f.config())
		store := token.NewStore("s")
		expired := testCredential(now.Add(-time.Hour))
		expired.RefreshToken = "revoked"
		require.NoError(t, store.Set(expired))

		_, err := m.EnsureValid(context.Background(), store, now)
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
		require.Nil(t, store.Get())
		require.EqualValues(t, 1, f.refreshes.Load())
	})

	t.Run("timed out refresh clears the store", func(t *testing.T) {
		f := newFakeTokenEndpoint(t)
		f.delay = 300 * time.Millisecond
		m := token.NewManager(f.config(), token.WithTimeout(50*time.Millisecond))
		store := token.NewStore("s")
		expired := testCredential(now.Add(-time.Hour))
		expired.RefreshToken = validRefresh
		require.NoError(t, store.Set(expired))

		_, err := m.EnsureValid(context.Background(), store, now)
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		require.Nil(t, store.Get())
	})

	t.Run("concurrent callers share one refresh", func(t *testing.T) {
		f := newFakeTokenEndpoint(t)
		f.release = make(chan struct{})
		m := token.NewManager(f.config())
		store := token.NewStore("s")
		expired := testCredential(now.Add(-time.Hour))
		expired.RefreshToken = validRefresh
		require.NoError(t, store.Set(expired))

		const callers = 20
		results := make([]*token.Credential, callers)
		errs := make([]error, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = m.EnsureValid(context.Background(), store, now)
			}(i)
		}
		time.Sleep(50 * time.Millisecond)
		close(f.release)
		wg.Wait()

		require.EqualValues(t, 1, f.refreshes.Load())
		for i := 0; i < callers; i++ {
			require.NoError(t, errs[i])
			require.Equal(t, *results[0], *results[i])
		}
	})

	t.Run("concurrent callers share one failure", func(t *testing.T) {
		f := newFakeTokenEndpoint(t)
		f.release = make(chan struct{})
		m := token.NewManager(f.config())
		store := token.NewStore("s")
		expired := testCredential(now.Add(-time.Hour))
		expired.RefreshToken = "revoked"
		require.NoError(t, store.Set(expired))

		const callers = 10
		errs := make([]error, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = m.EnsureValid(context.Background(), store, now)
			}(i)
		}
		time.Sleep(50 * time.Millisecond)
		close(f.release)
		wg.Wait()

		require.EqualValues(t, 1, f.refreshes.Load())
		for _, err := range errs {
			require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		}
	})

	t.Run("abandoned caller does not cancel the shared refresh", func(t *testing.T) {
		f := newFakeTokenEndpoint(t)
		f.delay = 100 * time.Millisecond
		m := token.NewManager(f.config())
		store := token.NewStore("s")
		expired := testCredential(now.Add(-time.Hour))
		expired.RefreshToken = validRefresh
		require.NoError(t, store.Set(expired))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := m.EnsureValid(ctx, store, now)
		require.ErrorIs(t, err, context.DeadlineExceeded)

		require.Eventually(t, func() bool {
			c := store.Get()
			return c != nil && c.AccessToken == "access-2"
		}, 2*time.Second, 10*time.Millisecond)
	})
}
